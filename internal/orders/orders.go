// Package orders persists confirmed orders under
// customerOrderHistory/{customerId}/orders/{orderId} and streams the whole
// collection to subscribers.
package orders

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/store"
)

const rootPath = "customerOrderHistory"

// Errors returned by the order store.
var (
	ErrCustomerRequired = fmt.Errorf("%w: customer id is required", apperr.ErrValidation)
	ErrOrderNotFound    = fmt.Errorf("%w: order not found", apperr.ErrNotFound)
	ErrItemIndex        = fmt.Errorf("%w: item index out of range", apperr.ErrValidation)
	ErrNoItems          = fmt.Errorf("%w: an order must keep at least one item", apperr.ErrValidation)
)

// Patch lists the order fields an update may change. Nil fields are left
// alone. The store does not recompute GrandTotal; callers that change Items or
// DeliveryCharge set it themselves.
type Patch struct {
	Items           *[]model.LineItem
	DeliveryCharge  *decimal.Decimal
	GrandTotal      *decimal.Decimal
	PaymentReceived *decimal.Decimal
	PaymentMode     *string
	Delivered       *bool
}

func (p Patch) fields() map[string]any {
	f := map[string]any{}
	if p.Items != nil {
		f["items"] = *p.Items
	}
	if p.DeliveryCharge != nil {
		f["deliveryCharges"] = *p.DeliveryCharge
	}
	if p.GrandTotal != nil {
		f["grandTotal"] = *p.GrandTotal
	}
	if p.PaymentReceived != nil {
		f["paymentReceived"] = *p.PaymentReceived
	}
	if p.PaymentMode != nil {
		f["paymentMode"] = *p.PaymentMode
	}
	if p.Delivered != nil {
		f["delivered"] = *p.Delivered
	}
	return f
}

// Store is the order store over the document store.
type Store struct {
	db store.Store
}

// New creates an order store.
func New(db store.Store) *Store {
	return &Store{db: db}
}

func customerPath(customerID string) string { return store.Join(rootPath, customerID) }
func ordersPath(customerID string) string   { return store.Join(rootPath, customerID, "orders") }
func orderPath(customerID, orderID string) string {
	return store.Join(rootPath, customerID, "orders", orderID)
}

// Append stores o under a freshly generated id and returns the id. GrandTotal
// is recomputed from the items before writing.
func (s *Store) Append(ctx context.Context, customerID string, o model.Order) (string, error) {
	if customerID == "" {
		return "", ErrCustomerRequired
	}
	o = o.Clone()
	o.Recompute()
	id, err := s.db.Push(ctx, ordersPath(customerID), o)
	if err != nil {
		return "", apperr.Persistence("append order", err)
	}
	return id, nil
}

// Get reads one order.
func (s *Store) Get(ctx context.Context, customerID, orderID string) (model.Order, error) {
	if customerID == "" {
		return model.Order{}, ErrCustomerRequired
	}
	snap, err := s.db.Get(ctx, orderPath(customerID, orderID))
	if err != nil {
		return model.Order{}, apperr.Persistence("get order", err)
	}
	if !snap.Exists() {
		return model.Order{}, fmt.Errorf("%w: %s/%s", ErrOrderNotFound, customerID, orderID)
	}
	var o model.Order
	if err := snap.Decode(&o); err != nil {
		return model.Order{}, apperr.Persistence("decode order", err)
	}
	o.ID, o.CustomerID = orderID, customerID
	return o, nil
}

// Update merges patch into the stored order.
func (s *Store) Update(ctx context.Context, customerID, orderID string, patch Patch) error {
	if _, err := s.Get(ctx, customerID, orderID); err != nil {
		return err
	}
	fields := patch.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.Update(ctx, orderPath(customerID, orderID), fields); err != nil {
		return apperr.Persistence("update order", err)
	}
	return nil
}

// RemoveOrder deletes one order.
func (s *Store) RemoveOrder(ctx context.Context, customerID, orderID string) error {
	if customerID == "" {
		return ErrCustomerRequired
	}
	if err := s.db.Remove(ctx, orderPath(customerID, orderID)); err != nil {
		return apperr.Persistence("remove order", err)
	}
	return nil
}

// RemoveOrdersForMealType deletes every order of customerID whose meal type
// is mealType in one write. It returns how many were removed.
func (s *Store) RemoveOrdersForMealType(ctx context.Context, customerID, mealType string) (int, error) {
	if customerID == "" {
		return 0, ErrCustomerRequired
	}
	list, err := s.ListCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	doomed := map[string]any{}
	for _, o := range list {
		if o.MealType == mealType {
			doomed[o.ID] = nil
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := s.db.Update(ctx, ordersPath(customerID), doomed); err != nil {
		return 0, apperr.Persistence("remove meal orders", err)
	}
	return len(doomed), nil
}

// RemoveAllOrders deletes the customer's whole order history.
func (s *Store) RemoveAllOrders(ctx context.Context, customerID string) error {
	if customerID == "" {
		return ErrCustomerRequired
	}
	if err := s.db.Remove(ctx, customerPath(customerID)); err != nil {
		return apperr.Persistence("remove customer orders", err)
	}
	return nil
}

// ListCustomer returns one customer's orders, oldest first.
func (s *Store) ListCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	snap, err := s.db.Get(ctx, ordersPath(customerID))
	if err != nil {
		return nil, apperr.Persistence("list orders", err)
	}
	return decodeOrders(customerID, snap)
}

// ListAll returns every order of every customer.
func (s *Store) ListAll(ctx context.Context) ([]model.Order, error) {
	snap, err := s.db.Get(ctx, rootPath)
	if err != nil {
		return nil, apperr.Persistence("list orders", err)
	}
	return DecodeAll(snap)
}

// Listener receives the full current order collection after every change.
type Listener func(all []model.Order, err error)

// SubscribeAll calls fn with every order now and again after each change to
// any order. Call cancel to stop.
func (s *Store) SubscribeAll(ctx context.Context, fn Listener) (cancel func(), err error) {
	cancel, err = s.db.Subscribe(ctx, rootPath, func(snap store.Snapshot, err error) {
		if err != nil {
			fn(nil, apperr.Persistence("watch orders", err))
			return
		}
		all, err := DecodeAll(snap)
		fn(all, err)
	})
	if err != nil {
		return nil, apperr.Persistence("watch orders", err)
	}
	return cancel, nil
}

// SubscribeCustomer is SubscribeAll narrowed to one customer.
func (s *Store) SubscribeCustomer(ctx context.Context, customerID string, fn Listener) (cancel func(), err error) {
	if customerID == "" {
		return nil, ErrCustomerRequired
	}
	cancel, err = s.db.Subscribe(ctx, ordersPath(customerID), func(snap store.Snapshot, err error) {
		if err != nil {
			fn(nil, apperr.Persistence("watch orders", err))
			return
		}
		list, err := decodeOrders(customerID, snap)
		fn(list, err)
	})
	if err != nil {
		return nil, apperr.Persistence("watch orders", err)
	}
	return cancel, nil
}

// DecodeAll flattens a customerOrderHistory snapshot into orders with their
// ids filled in, ordered by customer then order id.
func DecodeAll(snap store.Snapshot) ([]model.Order, error) {
	var all []model.Order
	for _, c := range snap.Children() {
		list, err := decodeOrders(c.Key(), c.Child("orders"))
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	return all, nil
}

func decodeOrders(customerID string, snap store.Snapshot) ([]model.Order, error) {
	out := make([]model.Order, 0, len(snap.Keys()))
	for _, child := range snap.Children() {
		var o model.Order
		if err := child.Decode(&o); err != nil {
			return nil, apperr.Persistence(fmt.Sprintf("decode order %s/%s", customerID, child.Key()), err)
		}
		o.ID, o.CustomerID = child.Key(), customerID
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RemoveItem drops the item at index. When it was the last item the whole
// order is deleted and deleted is true; otherwise GrandTotal is recomputed.
func (s *Store) RemoveItem(ctx context.Context, customerID, orderID string, index int) (deleted bool, err error) {
	o, err := s.Get(ctx, customerID, orderID)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(o.Items) {
		return false, fmt.Errorf("%w: %d of %d", ErrItemIndex, index, len(o.Items))
	}
	o.Items = append(o.Items[:index], o.Items[index+1:]...)
	o.Recompute()
	if len(o.Items) == 0 {
		return true, s.RemoveOrder(ctx, customerID, orderID)
	}
	return false, s.Update(ctx, customerID, orderID, Patch{Items: &o.Items, GrandTotal: &o.GrandTotal})
}

// Edit replaces the items and/or the delivery charge in one write. A nil
// argument leaves that field alone. Everything is validated before the order
// is touched, so a rejected edit changes nothing. Zero quantities drop the item.
func (s *Store) Edit(ctx context.Context, customerID, orderID string, items *[]model.LineItem, charge *decimal.Decimal) (model.Order, error) {
	if items == nil && charge == nil {
		return model.Order{}, apperr.Validation("nothing to edit")
	}
	if items != nil {
		for i, it := range *items {
			if err := ValidateItem(it); err != nil {
				return model.Order{}, fmt.Errorf("item[%d]: %w", i, err)
			}
		}
	}
	if charge != nil && charge.IsNegative() {
		return model.Order{}, apperr.Validation("delivery charge must be >= 0")
	}

	o, err := s.Get(ctx, customerID, orderID)
	if err != nil {
		return model.Order{}, err
	}
	patch := Patch{GrandTotal: &o.GrandTotal}
	if items != nil {
		o.Items = append([]model.LineItem(nil), (*items)...)
		patch.Items = &o.Items
	}
	if charge != nil {
		o.DeliveryCharge = *charge
		patch.DeliveryCharge = &o.DeliveryCharge
	}
	o.Recompute()
	if len(o.Items) == 0 {
		return model.Order{}, ErrNoItems
	}
	if err := s.Update(ctx, customerID, orderID, patch); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// EditItems replaces the order's items.
func (s *Store) EditItems(ctx context.Context, customerID, orderID string, items []model.LineItem) (model.Order, error) {
	return s.Edit(ctx, customerID, orderID, &items, nil)
}

// EditDeliveryCharge changes the delivery charge and recomputes GrandTotal.
func (s *Store) EditDeliveryCharge(ctx context.Context, customerID, orderID string, charge decimal.Decimal) (model.Order, error) {
	return s.Edit(ctx, customerID, orderID, nil, &charge)
}

// ValidateItem checks a single line item.
func ValidateItem(it model.LineItem) error {
	switch {
	case it.Name == "":
		return apperr.Validation("name is required")
	case it.UnitPrice.IsNegative():
		return apperr.Validation("price must be >= 0")
	case it.Quantity < 0:
		return apperr.Validation("quantity must be >= 0")
	}
	return nil
}

// ValidatePaymentMode accepts online and offline.
func ValidatePaymentMode(mode string) error {
	if !enum.IsValidPaymentMode(mode) {
		return apperr.Validation("payment mode must be online or offline")
	}
	return nil
}
