// Package service holds the billing workflow: pricing a selection against the
// day's menu and confirming it into a stored order.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/intake"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

// Errors returned by the billing service.
var (
	ErrCustomerRequired = fmt.Errorf("%w: customer is required", apperr.ErrValidation)
	ErrMealRequired     = fmt.Errorf("%w: meal type is required", apperr.ErrValidation)
	ErrEmptyOrder       = fmt.Errorf("%w: select at least one item", apperr.ErrValidation)
	ErrEmptyMessage     = fmt.Errorf("%w: message is required", apperr.ErrValidation)
)

// RoutingKeyOrderConfirmed is published after every confirmed order.
const RoutingKeyOrderConfirmed = "order.confirmed"

// MenuSource returns the menu for a date and meal.
type MenuSource interface {
	Menu(ctx context.Context, date, mealType string) ([]model.CatalogItem, error)
}

// CustomerSource resolves a customer id.
type CustomerSource interface {
	Get(ctx context.Context, id string) (model.Customer, error)
}

// OrderAppender persists a confirmed order.
type OrderAppender interface {
	Append(ctx context.Context, customerID string, o model.Order) (string, error)
}

// SessionFolder adds a confirmed order to the shift tallies.
type SessionFolder interface {
	FoldIn(o model.Order) (bool, error)
}

// BillExporter renders and stores a bill. It reports its own failures.
type BillExporter interface {
	Export(ctx context.Context, o model.Order)
}

// Publisher announces confirmed orders.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BillingService confirms orders. Session, bills and events are optional and
// best-effort: their failures are logged and never undo a stored order.
type BillingService struct {
	menus     MenuSource
	customers CustomerSource
	orders    OrderAppender
	session   SessionFolder
	bills     BillExporter
	events    Publisher
	opts      BuilderOptions
	logger    *zap.Logger
}

// BillingDeps collects the collaborators of a BillingService.
type BillingDeps struct {
	Menus     MenuSource
	Customers CustomerSource
	Orders    OrderAppender
	Session   SessionFolder
	Bills     BillExporter
	Events    Publisher
	Logger    *zap.Logger
}

// NewBillingService creates a BillingService.
func NewBillingService(deps BillingDeps, opts BuilderOptions) *BillingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		menus:     deps.Menus,
		customers: deps.Customers,
		orders:    deps.Orders,
		session:   deps.Session,
		bills:     deps.Bills,
		events:    deps.Events,
		opts:      opts,
		logger:    logger,
	}
}

// Selection picks a menu item by name.
type Selection struct {
	Name     string
	Quantity int
}

// CustomItem is an ad hoc item. A nil Price counts as missing.
type CustomItem struct {
	Name          string
	LocalizedName string
	Price         *decimal.Decimal
}

// BillRequest is a whole billing screen submitted at once.
type BillRequest struct {
	CustomerID     string
	Date           string
	MealType       string
	Selections     []Selection
	CustomItems    []CustomItem
	DeliveryCharge *decimal.Decimal
}

// Prepare loads the menu for the request's date and meal and replays the
// selections into a new Builder.
func (s *BillingService) Prepare(ctx context.Context, req BillRequest) (*Builder, error) {
	if req.MealType == "" {
		return nil, ErrMealRequired
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	menu, err := s.menus.Menu(ctx, req.Date, req.MealType)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(menu, s.opts)
	for i, sel := range req.Selections {
		if err := b.SelectItem(sel.Name, sel.Quantity); err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	for i, ci := range req.CustomItems {
		if ci.Price == nil {
			return nil, fmt.Errorf("customItem[%d]: %w", i, ErrCustomItemIncomplete)
		}
		if err := b.AddCustomItem(ci.Name, ci.LocalizedName, *ci.Price); err != nil {
			return nil, fmt.Errorf("customItem[%d]: %w", i, err)
		}
	}
	if req.DeliveryCharge != nil {
		if err := b.SetDeliveryCharge(*req.DeliveryCharge); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ReadMessage matches a customer's order message against the menu for date
// and meal. The picks feed straight into BillRequest.Selections.
func (s *BillingService) ReadMessage(ctx context.Context, date, mealType, text string) (intake.Result, error) {
	if mealType == "" {
		return intake.Result{}, ErrMealRequired
	}
	if _, err := model.ParseDate(date); err != nil {
		return intake.Result{}, apperr.Validation("%v", err)
	}
	if strings.TrimSpace(text) == "" {
		return intake.Result{}, ErrEmptyMessage
	}
	menu, err := s.menus.Menu(ctx, date, mealType)
	if err != nil {
		return intake.Result{}, err
	}
	return intake.Read(menu, text), nil
}

// Quote prices a request without storing anything.
func (s *BillingService) Quote(ctx context.Context, req BillRequest) (Totals, []model.LineItem, error) {
	b, err := s.Prepare(ctx, req)
	if err != nil {
		return Totals{}, nil, err
	}
	return b.Totals(), b.Items(), nil
}

// Confirm turns the builder's selection into a stored order for the customer,
// folds it into the session tallies, exports the bill and publishes an event,
// then resets the builder. Nothing is written when validation fails.
func (s *BillingService) Confirm(ctx context.Context, b *Builder, customerID, date, mealType string) (model.Order, error) {
	// --- Validate ---
	if customerID == "" {
		return model.Order{}, ErrCustomerRequired
	}
	if mealType == "" {
		return model.Order{}, ErrMealRequired
	}
	if _, err := model.ParseDate(date); err != nil {
		return model.Order{}, apperr.Validation("%v", err)
	}
	items := b.Items()
	if len(items) == 0 {
		return model.Order{}, ErrEmptyOrder
	}
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return model.Order{}, err
	}

	// --- Persist ---
	totals := b.Totals()
	o := model.Order{
		CustomerID:     customerID,
		CustomerName:   customer.Name,
		Date:           date,
		MealType:       mealType,
		Items:          items,
		DeliveryCharge: totals.DeliveryCharge,
		GrandTotal:     totals.GrandTotal,
	}
	id, err := s.orders.Append(ctx, customerID, o)
	if err != nil {
		return model.Order{}, err
	}
	o.ID = id
	b.Reset()

	// --- Best-effort side effects ---
	if s.session != nil {
		if _, err := s.session.FoldIn(o); err != nil {
			s.logger.Error("fold order into session failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	if s.bills != nil {
		s.bills.Export(ctx, o)
	}
	if s.events != nil {
		payload := map[string]any{
			"customerId": o.CustomerID,
			"orderId":    o.ID,
			"order":      o,
		}
		if err := s.events.Publish(ctx, RoutingKeyOrderConfirmed, payload); err != nil {
			s.logger.Warn("publish order event failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	s.logger.Info("order confirmed",
		zap.String("order_id", id),
		zap.String("customer_id", customerID),
		zap.String("meal", mealType),
		zap.String("grand_total", o.GrandTotal.String()))
	return o, nil
}
