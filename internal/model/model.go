// Package model holds the records persisted in the document store. Field
// names in JSON tags match the keys already present in the live database.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/enum"
)

// DateLayout is the calendar date format used for menu and order dates.
const DateLayout = "2006-01-02"

// CatalogItem is one priced entry in the catalog or in a menu snapshot.
type CatalogItem struct {
	Name          string          `json:"name"`
	LocalizedName string          `json:"telugu,omitempty"`
	Price         decimal.Decimal `json:"price"`
}

// LineItem is one priced, quantified entry within an order.
type LineItem struct {
	Name          string          `json:"name"`
	LocalizedName string          `json:"telugu,omitempty"`
	UnitPrice     decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	IsCustom      bool            `json:"isCustom,omitempty"`
}

// Amount is unitPrice × quantity.
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a confirmed, priced request for one customer, date and meal type.
// ID and CustomerID are the store keys and are not part of the stored value.
type Order struct {
	ID              string          `json:"-"`
	CustomerID      string          `json:"-"`
	CustomerName    string          `json:"customerName"`
	Date            string          `json:"date"`
	MealType        string          `json:"mealType"`
	Items           []LineItem      `json:"items"`
	DeliveryCharge  decimal.Decimal `json:"deliveryCharges"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	PaymentReceived decimal.Decimal `json:"paymentReceived"`
	PaymentMode     string          `json:"paymentMode,omitempty"`
	Delivered       bool            `json:"delivered"`
}

// Subtotal sums the amounts of items with a positive quantity.
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity > 0 {
			total = total.Add(it.Amount())
		}
	}
	return total
}

// ItemsTotal is the revenue from the order's line items.
func (o Order) ItemsTotal() decimal.Decimal {
	return Subtotal(o.Items)
}

// ComputedTotal is what GrandTotal must equal.
func (o Order) ComputedTotal() decimal.Decimal {
	return o.ItemsTotal().Add(o.DeliveryCharge)
}

// Recompute drops zero-quantity items and refreshes GrandTotal.
func (o *Order) Recompute() {
	kept := o.Items[:0]
	for _, it := range o.Items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	o.Items = kept
	o.GrandTotal = o.ComputedTotal()
}

// Due is the amount still owed; negative when overpaid.
func (o Order) Due() decimal.Decimal {
	return o.GrandTotal.Sub(o.PaymentReceived)
}

// Mode returns the payment mode, defaulting to offline.
func (o Order) Mode() string {
	if o.PaymentMode == "" {
		return enum.PaymentModeOffline
	}
	return o.PaymentMode
}

// Clone returns a deep copy so callers can hand out orders without sharing
// the items slice.
func (o Order) Clone() Order {
	o.Items = append([]LineItem(nil), o.Items...)
	return o
}

// Customer is referenced by id from orders, never embedded.
type Customer struct {
	ID      string `json:"-"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// ParseDate validates a yyyy-MM-dd date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be yyyy-MM-dd", s)
	}
	return t, nil
}

// MealKey turns a free-form menu title into the key it is stored under, e.g.
// "Festival Special" becomes "festival_special".
func MealKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "_")
}
