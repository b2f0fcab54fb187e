// Package reconcile derives payment status from orders and records payments.
package reconcile

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/aggregate"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/orders"
	"go.uber.org/zap"
)

// Status is the payment state of one order. Due is negative when overpaid.
type Status struct {
	Status string          `json:"status"`
	Due    decimal.Decimal `json:"due"`
}

// DeriveStatus compares what is owed with what was received.
func DeriveStatus(o model.Order) Status {
	due := o.Due()
	switch due.Sign() {
	case 0:
		return Status{Status: enum.PaymentStatusPaid, Due: due}
	case -1:
		return Status{Status: enum.PaymentStatusOverpaid, Due: due}
	default:
		return Status{Status: enum.PaymentStatusPending, Due: due}
	}
}

// OrderStore is the subset of the order store reconciliation needs.
type OrderStore interface {
	Get(ctx context.Context, customerID, orderID string) (model.Order, error)
	Update(ctx context.Context, customerID, orderID string, patch orders.Patch) error
}

// Publisher announces recorded payments. Failures are logged, never returned.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// RoutingKeyPaymentRecorded is published after every recorded payment.
const RoutingKeyPaymentRecorded = "order.payment_recorded"

// Service records payments against stored orders.
type Service struct {
	store  OrderStore
	events Publisher
	logger *zap.Logger
}

// NewService creates a Service. events may be nil.
func NewService(store OrderStore, events Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, logger: logger}
}

// Payment is one payment to record.
type Payment struct {
	CustomerID string
	OrderID    string
	Amount     decimal.Decimal
	Mode       string
	Delivered  bool
}

// RecordPayment adds p.Amount to what the order has already received and
// stores the mode and delivered flag. Amounts must be positive.
func (s *Service) RecordPayment(ctx context.Context, p Payment) (model.Order, error) {
	if !p.Amount.IsPositive() {
		return model.Order{}, apperr.Validation("amount received must be a positive number")
	}
	if p.Mode == "" {
		p.Mode = enum.PaymentModeOffline
	}
	if err := orders.ValidatePaymentMode(p.Mode); err != nil {
		return model.Order{}, err
	}

	o, err := s.store.Get(ctx, p.CustomerID, p.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	o.PaymentReceived = o.PaymentReceived.Add(p.Amount)
	o.PaymentMode = p.Mode
	o.Delivered = p.Delivered

	if err := s.store.Update(ctx, p.CustomerID, p.OrderID, orders.Patch{
		PaymentReceived: &o.PaymentReceived,
		PaymentMode:     &o.PaymentMode,
		Delivered:       &o.Delivered,
	}); err != nil {
		return model.Order{}, err
	}

	if s.events != nil {
		st := DeriveStatus(o)
		payload := map[string]any{
			"customerId":      o.CustomerID,
			"orderId":         o.ID,
			"amount":          p.Amount,
			"paymentReceived": o.PaymentReceived,
			"paymentMode":     o.PaymentMode,
			"delivered":       o.Delivered,
			"status":          st.Status,
			"due":             st.Due,
		}
		if err := s.events.Publish(ctx, RoutingKeyPaymentRecorded, payload); err != nil {
			s.logger.Warn("publish payment event failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}

// DeliveryFilter narrows the deliveries view. Empty fields match all.
type DeliveryFilter struct {
	Date           string
	MealType       string
	CustomerSearch string
	Status         string
}

// DeliveryRow is one order with its derived status.
type DeliveryRow struct {
	Order  model.Order `json:"order"`
	Status Status      `json:"payment"`
}

// DeliveryGroup holds the rows for one meal type.
type DeliveryGroup struct {
	MealType string          `json:"mealType"`
	Rows     []DeliveryRow   `json:"rows"`
	Total    decimal.Decimal `json:"total"`
	Received decimal.Decimal `json:"received"`
	Due      decimal.Decimal `json:"due"`
}

// Deliveries groups the matching orders by meal type, known meals first in
// their usual order, then any other meal types alphabetically. Rows within a
// group are sorted by customer name.
func Deliveries(list []model.Order, f DeliveryFilter) []DeliveryGroup {
	match := aggregate.Filter{Date: f.Date, MealType: f.MealType, CustomerNamePattern: f.CustomerSearch}
	groups := map[string]*DeliveryGroup{}
	for _, o := range list {
		if !match.Match(o) {
			continue
		}
		st := DeriveStatus(o)
		if f.Status != "" && st.Status != f.Status {
			continue
		}
		g := groups[o.MealType]
		if g == nil {
			g = &DeliveryGroup{MealType: o.MealType}
			groups[o.MealType] = g
		}
		g.Rows = append(g.Rows, DeliveryRow{Order: o, Status: st})
		g.Total = g.Total.Add(o.GrandTotal)
		g.Received = g.Received.Add(o.PaymentReceived)
		g.Due = g.Due.Add(st.Due)
	}

	out := make([]DeliveryGroup, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.Rows, func(i, j int) bool {
			return g.Rows[i].Order.CustomerName < g.Rows[j].Order.CustomerName
		})
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := mealRank(out[i].MealType), mealRank(out[j].MealType)
		if ri != rj {
			return ri < rj
		}
		return out[i].MealType < out[j].MealType
	})
	return out
}

func mealRank(meal string) int {
	for i, m := range enum.MealTypes {
		if m == meal {
			return i
		}
	}
	return len(enum.MealTypes)
}
