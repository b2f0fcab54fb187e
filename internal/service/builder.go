package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/model"
)

// Errors returned while building an order.
var (
	ErrItemNotOnMenu          = fmt.Errorf("%w: item is not on the menu", apperr.ErrNotFound)
	ErrCustomItemsDisabled    = fmt.Errorf("%w: custom items are not allowed", apperr.ErrValidation)
	ErrCustomItemIncomplete   = fmt.Errorf("%w: custom item needs a name and a price", apperr.ErrValidation)
	ErrCustomItemDuplicate    = fmt.Errorf("%w: an item with this name is already selected", apperr.ErrValidation)
	ErrNegativePrice          = fmt.Errorf("%w: price must be >= 0", apperr.ErrValidation)
	ErrNegativeDeliveryCharge = fmt.Errorf("%w: delivery charge must be >= 0", apperr.ErrValidation)
)

// DefaultDeliveryCharge is used when BuilderOptions leaves it unset.
var DefaultDeliveryCharge = decimal.NewFromInt(30)

// BuilderOptions switches between the billing screen variants.
type BuilderOptions struct {
	// AllowCustomItems enables AddCustomItem.
	AllowCustomItems bool
	// IncrementOnReselect adds to the quantity of an already selected item
	// instead of replacing it.
	IncrementOnReselect bool
	// DefaultDeliveryCharge is the charge a fresh or reset builder starts with.
	// Nil means DefaultDeliveryCharge.
	DefaultDeliveryCharge *decimal.Decimal
}

func (o BuilderOptions) defaultCharge() decimal.Decimal {
	if o.DefaultDeliveryCharge != nil {
		return *o.DefaultDeliveryCharge
	}
	return DefaultDeliveryCharge
}

// Totals is the priced summary of a selection.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
}

// Builder accumulates the selection for one customer, date and meal before it
// is confirmed. Prices come from the menu it was created with, never from the
// live catalog. A Builder is not safe for concurrent use.
type Builder struct {
	opts           BuilderOptions
	menu           []model.CatalogItem
	items          []model.LineItem
	deliveryCharge decimal.Decimal
}

// NewBuilder returns an empty builder pricing items from menu.
func NewBuilder(menu []model.CatalogItem, opts BuilderOptions) *Builder {
	b := &Builder{opts: opts, menu: menu}
	b.Reset()
	return b
}

// Reset empties the selection and restores the default delivery charge.
func (b *Builder) Reset() {
	b.items = nil
	b.deliveryCharge = b.opts.defaultCharge()
}

// Item names match ignoring case, both in the selection and on the menu.
func (b *Builder) indexOf(name string) int {
	for i, it := range b.items {
		if strings.EqualFold(it.Name, name) {
			return i
		}
	}
	return -1
}

func (b *Builder) menuItem(name string) (model.CatalogItem, bool) {
	for _, it := range b.menu {
		if strings.EqualFold(it.Name, name) {
			return it, true
		}
	}
	return model.CatalogItem{}, false
}

// SelectItem sets the quantity of name. A quantity of zero or less removes it.
// When the name appears more than once on the menu the first entry's price
// wins.
func (b *Builder) SelectItem(name string, quantity int) error {
	if quantity <= 0 {
		b.RemoveItem(name)
		return nil
	}
	if i := b.indexOf(name); i >= 0 {
		if b.opts.IncrementOnReselect {
			b.items[i].Quantity += quantity
		} else {
			b.items[i].Quantity = quantity
		}
		return nil
	}
	mi, ok := b.menuItem(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrItemNotOnMenu, name)
	}
	b.items = append(b.items, model.LineItem{
		Name:          mi.Name,
		LocalizedName: mi.LocalizedName,
		UnitPrice:     mi.Price,
		Quantity:      quantity,
	})
	return nil
}

// RemoveItem drops name from the selection. Unknown names are ignored.
func (b *Builder) RemoveItem(name string) {
	if i := b.indexOf(name); i >= 0 {
		b.items = append(b.items[:i], b.items[i+1:]...)
	}
}

// AddCustomItem appends an ad hoc item with quantity 1.
func (b *Builder) AddCustomItem(name, localizedName string, price decimal.Decimal) error {
	if !b.opts.AllowCustomItems {
		return ErrCustomItemsDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrCustomItemIncomplete
	}
	if price.IsNegative() {
		return ErrNegativePrice
	}
	if b.indexOf(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrCustomItemDuplicate, name)
	}
	b.items = append(b.items, model.LineItem{
		Name:          name,
		LocalizedName: strings.TrimSpace(localizedName),
		UnitPrice:     price,
		Quantity:      1,
		IsCustom:      true,
	})
	return nil
}

// SetDeliveryCharge accepts any non-negative amount.
func (b *Builder) SetDeliveryCharge(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeDeliveryCharge
	}
	b.deliveryCharge = amount
	return nil
}

// Items returns a copy of the retained line items in selection order.
func (b *Builder) Items() []model.LineItem {
	out := make([]model.LineItem, 0, len(b.items))
	for _, it := range b.items {
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Totals prices the current selection.
func (b *Builder) Totals() Totals {
	sub := model.Subtotal(b.items)
	return Totals{
		Subtotal:       sub,
		DeliveryCharge: b.deliveryCharge,
		GrandTotal:     sub.Add(b.deliveryCharge),
	}
}
