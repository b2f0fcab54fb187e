package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/handler"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/orders"
	"github.com/tiffindesk/api/internal/reconcile"
	"go.uber.org/zap"
)

type mockOrderLister struct {
	listAllFn func(ctx context.Context) ([]model.Order, error)
}

func (m *mockOrderLister) ListAll(ctx context.Context) ([]model.Order, error) {
	return m.listAllFn(ctx)
}

type mockPaymentRecorder struct {
	recordFn func(ctx context.Context, p reconcile.Payment) (model.Order, error)
}

func (m *mockPaymentRecorder) RecordPayment(ctx context.Context, p reconcile.Payment) (model.Order, error) {
	return m.recordFn(ctx, p)
}

func newDeliveryRouter(lister handler.OrderLister, payments handler.PaymentRecorder) http.Handler {
	h := handler.NewDeliveryHandler(lister, payments, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/deliveries", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterWriteRoutes(r)
	})
	return r
}

func deliveryOrder(id, cid, name, meal string, total, received int64) model.Order {
	return model.Order{
		ID:              id,
		CustomerID:      cid,
		CustomerName:    name,
		Date:            "2024-05-01",
		MealType:        meal,
		GrandTotal:      decimal.NewFromInt(total),
		PaymentReceived: decimal.NewFromInt(received),
	}
}

func TestDeliveries_List(t *testing.T) {
	lister := &mockOrderLister{listAllFn: func(context.Context) ([]model.Order, error) {
		return []model.Order{
			deliveryOrder("o1", "ravi_2", "Ravi", "lunch", 100, 100),
			deliveryOrder("o2", "asha_1", "Asha", "lunch", 200, 50),
			deliveryOrder("o3", "asha_1", "Asha", "breakfast", 40, 60),
		}, nil
	}}
	r := newDeliveryRouter(lister, &mockPaymentRecorder{})

	rr := doJSON(t, r, "GET", "/deliveries?date=2024-05-01", nil)
	expectStatus(t, rr, http.StatusOK)

	var groups []struct {
		MealType string `json:"mealType"`
		Rows     []struct {
			ID         string           `json:"id"`
			CustomerID string           `json:"customerId"`
			Payment    reconcile.Status `json:"payment"`
		} `json:"rows"`
		Due decimal.Decimal `json:"due"`
	}
	decodeInto(t, rr, &groups)
	if len(groups) != 2 || groups[0].MealType != "breakfast" || groups[1].MealType != "lunch" {
		t.Fatalf("groups: got %+v", groups)
	}
	if groups[0].Rows[0].Payment.Status != "overpaid" {
		t.Errorf("breakfast status: got %s, want overpaid", groups[0].Rows[0].Payment.Status)
	}
	lunch := groups[1]
	if lunch.Rows[0].ID != "o2" || lunch.Rows[0].CustomerID != "asha_1" {
		t.Errorf("first lunch row: got %+v", lunch.Rows[0])
	}
	if !lunch.Due.Equal(decimal.NewFromInt(150)) {
		t.Errorf("lunch due: got %s, want 150", lunch.Due)
	}
}

func TestDeliveries_ListStatusFilter(t *testing.T) {
	lister := &mockOrderLister{listAllFn: func(context.Context) ([]model.Order, error) {
		return []model.Order{
			deliveryOrder("o1", "ravi_2", "Ravi", "lunch", 100, 100),
			deliveryOrder("o2", "asha_1", "Asha", "lunch", 200, 50),
		}, nil
	}}
	r := newDeliveryRouter(lister, &mockPaymentRecorder{})

	rr := doJSON(t, r, "GET", "/deliveries?status=pending", nil)
	expectStatus(t, rr, http.StatusOK)
	var groups []map[string]any
	decodeInto(t, rr, &groups)
	if len(groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(groups))
	}
	if rows, _ := groups[0]["rows"].([]any); len(rows) != 1 {
		t.Errorf("rows: got %v", groups[0]["rows"])
	}

	expectStatus(t, doJSON(t, r, "GET", "/deliveries?status=late", nil), http.StatusBadRequest)
	expectStatus(t, doJSON(t, r, "GET", "/deliveries?date=May", nil), http.StatusBadRequest)
}

func TestDeliveries_ListStoreFailure(t *testing.T) {
	lister := &mockOrderLister{listAllFn: func(context.Context) ([]model.Order, error) {
		return nil, apperr.Persistence("list orders", errors.New("timeout"))
	}}
	r := newDeliveryRouter(lister, &mockPaymentRecorder{})

	expectStatus(t, doJSON(t, r, "GET", "/deliveries", nil), http.StatusBadGateway)
}

func TestDeliveries_RecordPayment(t *testing.T) {
	var got reconcile.Payment
	payments := &mockPaymentRecorder{recordFn: func(_ context.Context, p reconcile.Payment) (model.Order, error) {
		got = p
		o := deliveryOrder(p.OrderID, p.CustomerID, "Asha", "lunch", 500, 600)
		o.PaymentMode = p.Mode
		o.Delivered = p.Delivered
		return o, nil
	}}
	r := newDeliveryRouter(&mockOrderLister{}, payments)

	rr := postJSON(t, r, "/deliveries/asha_1/o9/payments", map[string]any{
		"amount":    "100",
		"mode":      "online",
		"delivered": true,
	})
	expectStatus(t, rr, http.StatusOK)

	if got.CustomerID != "asha_1" || got.OrderID != "o9" || got.Mode != "online" || !got.Delivered {
		t.Errorf("payment: got %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amount: got %s, want 100", got.Amount)
	}

	resp := decodeResponse(t, rr)
	payment, _ := resp["payment"].(map[string]any)
	if payment["status"] != "overpaid" || payment["due"] != "-100" {
		t.Errorf("payment status: got %v", payment)
	}
}

func TestDeliveries_RecordPaymentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", apperr.Validation("amount received must be a positive number"), http.StatusBadRequest},
		{"missing order", orders.ErrOrderNotFound, http.StatusNotFound},
		{"store down", apperr.Persistence("update order", errors.New("boom")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &mockPaymentRecorder{recordFn: func(context.Context, reconcile.Payment) (model.Order, error) {
				return model.Order{}, tt.err
			}}
			r := newDeliveryRouter(&mockOrderLister{}, payments)

			rr := postJSON(t, r, "/deliveries/asha_1/o1/payments", map[string]any{"amount": "0"})
			expectStatus(t, rr, tt.want)
		})
	}
}
