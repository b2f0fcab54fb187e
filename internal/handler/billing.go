package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/intake"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/service"
	"go.uber.org/zap"
)

// BillingService defines the billing workflow used by the handler.
// Satisfied by *service.BillingService.
type BillingService interface {
	Prepare(ctx context.Context, req service.BillRequest) (*service.Builder, error)
	Quote(ctx context.Context, req service.BillRequest) (service.Totals, []model.LineItem, error)
	Confirm(ctx context.Context, b *service.Builder, customerID, date, mealType string) (model.Order, error)
	ReadMessage(ctx context.Context, date, mealType, text string) (intake.Result, error)
}

// BillingHandler prices and confirms orders.
type BillingHandler struct {
	svc    BillingService
	logger *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers billing reads. Expected under /billing.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/delivery-charges", h.DeliveryCharges)
}

// RegisterWriteRoutes registers billing writes. Expected under /billing.
func (h *BillingHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/quote", h.Quote)
	r.Post("/confirm", h.Confirm)
	r.Post("/parse", h.ParseMessage)
}

// --- Request / Response types ---

type selectionRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type customItemRequest struct {
	Name          string           `json:"name"`
	LocalizedName string           `json:"telugu"`
	Price         *decimal.Decimal `json:"price"`
}

type billRequest struct {
	CustomerID     string              `json:"customerId"`
	Date           string              `json:"date"`
	MealType       string              `json:"mealType"`
	Selections     []selectionRequest  `json:"selections"`
	CustomItems    []customItemRequest `json:"customItems"`
	DeliveryCharge *decimal.Decimal    `json:"deliveryCharge"`
}

func (b billRequest) toService() service.BillRequest {
	req := service.BillRequest{
		CustomerID:     b.CustomerID,
		Date:           b.Date,
		MealType:       b.MealType,
		DeliveryCharge: b.DeliveryCharge,
	}
	for _, s := range b.Selections {
		req.Selections = append(req.Selections, service.Selection{Name: s.Name, Quantity: s.Quantity})
	}
	for _, c := range b.CustomItems {
		req.CustomItems = append(req.CustomItems, service.CustomItem{
			Name:          c.Name,
			LocalizedName: c.LocalizedName,
			Price:         c.Price,
		})
	}
	return req
}

type parseRequest struct {
	Date     string `json:"date"`
	MealType string `json:"mealType"`
	Message  string `json:"message"`
}

type quoteResponse struct {
	Items []model.LineItem `json:"items"`
	service.Totals
}

type confirmResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	model.Order
}

// --- Handlers ---

// DeliveryCharges returns the preset delivery amounts offered on the billing screen.
func (h *BillingHandler) DeliveryCharges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int64{"presets": enum.DeliveryChargePresets})
}

// Quote prices a selection without storing it.
func (h *BillingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	totals, items, err := h.svc.Quote(r.Context(), req.toService())
	if err != nil {
		writeError(w, h.logger, "quote bill", err)
		return
	}
	if items == nil {
		items = []model.LineItem{}
	}
	writeJSON(w, http.StatusOK, quoteResponse{Items: items, Totals: totals})
}

// Confirm prices the selection and stores it as an order.
func (h *BillingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	b, err := h.svc.Prepare(r.Context(), req.toService())
	if err != nil {
		writeError(w, h.logger, "prepare bill", err)
		return
	}
	o, err := h.svc.Confirm(r.Context(), b, req.CustomerID, req.Date, req.MealType)
	if err != nil {
		writeError(w, h.logger, "confirm order", err)
		return
	}
	writeJSON(w, http.StatusCreated, confirmResponse{ID: o.ID, CustomerID: o.CustomerID, Order: o})
}

// ParseMessage reads a pasted customer message into selections for the
// billing screen. Nothing is priced or stored.
func (h *BillingHandler) ParseMessage(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	res, err := h.svc.ReadMessage(r.Context(), req.Date, req.MealType, req.Message)
	if err != nil {
		writeError(w, h.logger, "parse order message", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
