package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lunchMenu() []model.CatalogItem {
	return []model.CatalogItem{
		{Name: "Paneer Curry", LocalizedName: "పనీర్ కూర", Price: dec("80")},
		{Name: "Rice", Price: dec("50")},
		{Name: "Rice", Price: dec("999")},
	}
}

func TestBuilder_ScenarioA(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	if err := b.SelectItem("Paneer Curry", 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := b.SetDeliveryCharge(dec("30")); err != nil {
		t.Fatalf("delivery: %v", err)
	}

	got := b.Totals()
	if !got.Subtotal.Equal(dec("160")) {
		t.Errorf("subtotal = %s, want 160", got.Subtotal)
	}
	if !got.DeliveryCharge.Equal(dec("30")) {
		t.Errorf("delivery = %s, want 30", got.DeliveryCharge)
	}
	if !got.GrandTotal.Equal(dec("190")) {
		t.Errorf("grand total = %s, want 190", got.GrandTotal)
	}
	if items := b.Items(); items[0].LocalizedName != "పనీర్ కూర" {
		t.Errorf("localized name not copied: %+v", items[0])
	}
}

func TestBuilder_DefaultDeliveryCharge(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	if !b.Totals().DeliveryCharge.Equal(dec("30")) {
		t.Errorf("default delivery = %s, want 30", b.Totals().DeliveryCharge)
	}

	zero := decimal.Zero
	b = NewBuilder(lunchMenu(), BuilderOptions{DefaultDeliveryCharge: &zero})
	if !b.Totals().GrandTotal.IsZero() {
		t.Errorf("grand total = %s, want 0", b.Totals().GrandTotal)
	}
}

func TestBuilder_ReselectReplacesByDefault(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	b.SelectItem("Rice", 2)
	b.SelectItem("Rice", 3)

	items := b.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("items = %+v, want Rice x3", items)
	}
	if !items[0].UnitPrice.Equal(dec("50")) {
		t.Errorf("price = %s, want first menu entry 50", items[0].UnitPrice)
	}
}

func TestBuilder_ReselectIncrementsWhenConfigured(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{IncrementOnReselect: true})
	b.SelectItem("Rice", 2)
	b.SelectItem("Rice", 3)

	if q := b.Items()[0].Quantity; q != 5 {
		t.Errorf("quantity = %d, want 5", q)
	}
}

func TestBuilder_NamesMatchIgnoringCase(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	if err := b.SelectItem("rice", 2); err != nil {
		t.Fatalf("select lower-case on empty selection: %v", err)
	}
	if err := b.SelectItem("RICE", 3); err != nil {
		t.Fatalf("reselect: %v", err)
	}

	items := b.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("items = %+v, want one Rice x3", items)
	}
	if items[0].Name != "Rice" {
		t.Errorf("name = %q, want the menu spelling", items[0].Name)
	}
}

func TestBuilder_ZeroQuantityRemoves(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	b.SelectItem("Rice", 2)
	b.SelectItem("Paneer Curry", 1)
	if err := b.SelectItem("Rice", 0); err != nil {
		t.Fatalf("select 0: %v", err)
	}

	items := b.Items()
	if len(items) != 1 || items[0].Name != "Paneer Curry" {
		t.Errorf("items = %+v, want only Paneer Curry", items)
	}
	if !b.Totals().Subtotal.Equal(dec("80")) {
		t.Errorf("subtotal = %s, want 80", b.Totals().Subtotal)
	}
}

func TestBuilder_SelectUnknownItem(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	err := b.SelectItem("Biryani", 1)
	if !errors.Is(err, ErrItemNotOnMenu) || !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrItemNotOnMenu", err)
	}
}

func TestBuilder_CustomItems(t *testing.T) {
	tests := []struct {
		name    string
		opts    BuilderOptions
		item    string
		price   string
		wantErr error
	}{
		{"disabled", BuilderOptions{}, "Sweet", "40", ErrCustomItemsDisabled},
		{"missing name", BuilderOptions{AllowCustomItems: true}, "  ", "40", ErrCustomItemIncomplete},
		{"negative price", BuilderOptions{AllowCustomItems: true}, "Sweet", "-1", ErrNegativePrice},
		{"duplicate of menu item", BuilderOptions{AllowCustomItems: true}, "rice", "10", ErrCustomItemDuplicate},
		{"ok", BuilderOptions{AllowCustomItems: true}, "Sweet", "40", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(lunchMenu(), tt.opts)
			b.SelectItem("Rice", 1)
			err := b.AddCustomItem(tt.item, "", dec(tt.price))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(b.Items()) != 1 {
					t.Errorf("failed add changed the selection: %+v", b.Items())
				}
				return
			}
			items := b.Items()
			last := items[len(items)-1]
			if !last.IsCustom || last.Quantity != 1 {
				t.Errorf("custom item = %+v", last)
			}
			if !b.Totals().Subtotal.Equal(dec("90")) {
				t.Errorf("subtotal = %s, want 90", b.Totals().Subtotal)
			}
		})
	}
}

func TestBuilder_NegativeDeliveryCharge(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	if err := b.SetDeliveryCharge(dec("-5")); !errors.Is(err, ErrNegativeDeliveryCharge) {
		t.Errorf("err = %v", err)
	}
	if err := b.SetDeliveryCharge(dec("45")); err != nil {
		t.Errorf("non-preset charge rejected: %v", err)
	}
}

func TestBuilder_Reset(t *testing.T) {
	b := NewBuilder(lunchMenu(), BuilderOptions{})
	b.SelectItem("Rice", 2)
	b.SetDeliveryCharge(dec("60"))
	b.Reset()

	if len(b.Items()) != 0 {
		t.Errorf("items not cleared")
	}
	if !b.Totals().DeliveryCharge.Equal(dec("30")) {
		t.Errorf("delivery = %s, want default", b.Totals().DeliveryCharge)
	}
}
