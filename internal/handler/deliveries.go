package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/reconcile"
	"go.uber.org/zap"
)

// OrderLister lists every stored order. Satisfied by *orders.Store.
type OrderLister interface {
	ListAll(ctx context.Context) ([]model.Order, error)
}

// PaymentRecorder records a payment. Satisfied by *reconcile.Service.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, p reconcile.Payment) (model.Order, error)
}

// DeliveryHandler serves the delivery checklist and records payments.
type DeliveryHandler struct {
	orders   OrderLister
	payments PaymentRecorder
	logger   *zap.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(orders OrderLister, payments PaymentRecorder, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{orders: orders, payments: payments, logger: logger}
}

// RegisterRoutes registers delivery reads. Expected under /deliveries.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterWriteRoutes registers payment recording. Expected under /deliveries.
func (h *DeliveryHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/{cid}/{oid}/payments", h.RecordPayment)
}

// --- Request / Response types ---

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
	Delivered bool            `json:"delivered"`
}

type deliveryRowResponse struct {
	orderResponse
	Payment reconcile.Status `json:"payment"`
}

type deliveryGroupResponse struct {
	MealType string                `json:"mealType"`
	Rows     []deliveryRowResponse `json:"rows"`
	Total    decimal.Decimal       `json:"total"`
	Received decimal.Decimal       `json:"received"`
	Due      decimal.Decimal       `json:"due"`
}

type paymentResponse struct {
	orderResponse
	Payment reconcile.Status `json:"payment"`
}

func validStatusFilter(s string) bool {
	switch s {
	case "", enum.PaymentStatusPaid, enum.PaymentStatusPending, enum.PaymentStatusOverpaid:
		return true
	}
	return false
}

// --- Handlers ---

// List returns the filtered orders grouped by meal with payment status.
// Query: ?date=&meal=&search=&status=paid|pending|overpaid
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := reconcile.DeliveryFilter{
		Date:           q.Get("date"),
		MealType:       q.Get("meal"),
		CustomerSearch: q.Get("search"),
		Status:         q.Get("status"),
	}
	if f.Date != "" {
		if _, err := model.ParseDate(f.Date); err != nil {
			writeError(w, h.logger, "list deliveries", apperr.Validation("%v", err))
			return
		}
	}
	if !validStatusFilter(f.Status) {
		badRequest(w, "status must be paid, pending or overpaid")
		return
	}

	all, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, "list orders", err)
		return
	}

	groups := reconcile.Deliveries(all, f)
	resp := make([]deliveryGroupResponse, len(groups))
	for i, g := range groups {
		rows := make([]deliveryRowResponse, len(g.Rows))
		for j, row := range g.Rows {
			rows[j] = deliveryRowResponse{orderResponse: toOrderResponse(row.Order), Payment: row.Status}
		}
		resp[i] = deliveryGroupResponse{
			MealType: g.MealType,
			Rows:     rows,
			Total:    g.Total,
			Received: g.Received,
			Due:      g.Due,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// RecordPayment adds a received amount to an order.
func (h *DeliveryHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	o, err := h.payments.RecordPayment(r.Context(), reconcile.Payment{
		CustomerID: chi.URLParam(r, "cid"),
		OrderID:    chi.URLParam(r, "oid"),
		Amount:     req.Amount,
		Mode:       req.Mode,
		Delivered:  req.Delivered,
	})
	if err != nil {
		writeError(w, h.logger, "record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{orderResponse: toOrderResponse(o), Payment: reconcile.DeriveStatus(o)})
}
