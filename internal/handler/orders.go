package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/aggregate"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

// OrderStore defines the order store methods needed by order handlers.
// Satisfied by *orders.Store.
type OrderStore interface {
	ListAll(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, customerID, orderID string) (model.Order, error)
	Edit(ctx context.Context, customerID, orderID string, items *[]model.LineItem, charge *decimal.Decimal) (model.Order, error)
	RemoveOrder(ctx context.Context, customerID, orderID string) error
	RemoveItem(ctx context.Context, customerID, orderID string, index int) (bool, error)
	RemoveOrdersForMealType(ctx context.Context, customerID, mealType string) (int, error)
	RemoveAllOrders(ctx context.Context, customerID string) error
}

// OrderHandler serves the aggregated order views and order edits.
type OrderHandler struct {
	store  OrderStore
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{store: store, logger: logger}
}

// RegisterRoutes registers order reads. Expected under /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Aggregate)
	r.Get("/history", h.History)
	r.Get("/{cid}/{oid}", h.Get)
}

// RegisterWriteRoutes registers order edits. Expected under /orders.
func (h *OrderHandler) RegisterWriteRoutes(r chi.Router) {
	r.Patch("/{cid}/{oid}", h.Edit)
	r.Delete("/{cid}/{oid}", h.Delete)
	r.Delete("/{cid}/{oid}/items/{idx}", h.DeleteItem)
	r.Delete("/{cid}", h.DeleteForCustomer)
}

// --- Request / Response types ---

type editOrderRequest struct {
	Items          *[]model.LineItem `json:"items"`
	DeliveryCharge *decimal.Decimal  `json:"deliveryCharge"`
}

type orderResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	model.Order
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{ID: o.ID, CustomerID: o.CustomerID, Order: o}
}

type customerOrdersResponse struct {
	CustomerID   string                     `json:"customerId"`
	CustomerName string                     `json:"customerName"`
	Meals        map[string][]orderResponse `json:"meals"`
	Total        string                     `json:"total"`
	Due          string                     `json:"due"`
}

// filterFromQuery reads ?date=&meal=&customer=. A malformed date is rejected.
func filterFromQuery(r *http.Request) (aggregate.Filter, error) {
	q := r.URL.Query()
	f := aggregate.Filter{
		Date:                q.Get("date"),
		MealType:            q.Get("meal"),
		CustomerNamePattern: q.Get("customer"),
	}
	if f.Date != "" {
		if _, err := model.ParseDate(f.Date); err != nil {
			return aggregate.Filter{}, apperr.Validation("%v", err)
		}
	}
	return f, nil
}

// --- Handlers ---

// Aggregate returns cooking, packaging and revenue totals for the filter.
func (h *OrderHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "aggregate orders", err)
		return
	}
	all, err := h.store.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Aggregate(all, f))
}

// History returns the filtered orders grouped by customer and meal.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "order history", err)
		return
	}
	all, err := h.store.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, "list orders", err)
		return
	}
	groups := aggregate.PerCustomerOrders(all, f)
	resp := make([]customerOrdersResponse, len(groups))
	for i, g := range groups {
		meals := make(map[string][]orderResponse, len(g.Meals))
		for meal, list := range g.Meals {
			for _, o := range list {
				meals[meal] = append(meals[meal], toOrderResponse(o))
			}
		}
		resp[i] = customerOrdersResponse{
			CustomerID:   g.CustomerID,
			CustomerName: g.CustomerName,
			Meals:        meals,
			Total:        moneyString(g.Total),
			Due:          moneyString(g.Due),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.Get(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.logger, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Edit replaces the items and/or the delivery charge. The grand total is
// recomputed either way.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Items == nil && req.DeliveryCharge == nil {
		badRequest(w, "items or deliveryCharge is required")
		return
	}

	o, err := h.store.Edit(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "oid"), req.Items, req.DeliveryCharge)
	if err != nil {
		writeError(w, h.logger, "edit order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Delete removes one order.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveOrder(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "oid")); err != nil {
		writeError(w, h.logger, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem removes one line item; removing the last one deletes the order.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		badRequest(w, "invalid item index")
		return
	}
	deleted, err := h.store.RemoveItem(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "oid"), idx)
	if err != nil {
		writeError(w, h.logger, "delete order item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"orderDeleted": deleted})
}

// DeleteForCustomer removes the customer's orders for ?meal=, or all of them
// when no meal is given.
func (h *OrderHandler) DeleteForCustomer(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	meal := r.URL.Query().Get("meal")
	if meal == "" {
		if err := h.store.RemoveAllOrders(r.Context(), cid); err != nil {
			writeError(w, h.logger, "delete customer orders", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	n, err := h.store.RemoveOrdersForMealType(r.Context(), cid, meal)
	if err != nil {
		writeError(w, h.logger, "delete meal orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
