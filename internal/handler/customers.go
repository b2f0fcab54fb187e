package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tiffindesk/api/internal/customer"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

// CustomerStore defines the directory methods needed by customer handlers.
// Satisfied by *customer.Directory.
type CustomerStore interface {
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
	Get(ctx context.Context, id string) (model.Customer, error)
	Update(ctx context.Context, id string, c model.Customer) (model.Customer, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, search string) ([]model.Customer, error)
}

// CustomerOrderLister lists one customer's order history.
type CustomerOrderLister interface {
	ListCustomer(ctx context.Context, customerID string) ([]model.Order, error)
}

// CustomerHandler handles customer CRUD endpoints.
type CustomerHandler struct {
	store  CustomerStore
	orders CustomerOrderLister
	logger *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, orders CustomerOrderLister, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{store: store, orders: orders, logger: logger}
}

// RegisterRoutes registers customer reads. Expected under /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/orders", h.Orders)
}

// RegisterWriteRoutes registers customer writes. Expected under /customers.
func (h *CustomerHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type customerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (c customerRequest) toModel() model.Customer {
	return model.Customer{Name: c.Name, Phone: c.Phone, Address: c.Address}
}

type customerResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

func toCustomerResponse(c model.Customer) customerResponse {
	return customerResponse{ID: c.ID, Name: c.Name, Phone: c.Phone, Address: c.Address}
}

type customerOrderResponse struct {
	ID string `json:"id"`
	model.Order
}

// --- Handlers ---

// List returns customers, optionally filtered by ?search= on name or phone.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.logger, "list customers", err)
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single customer by ID.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// Create adds a customer. The id is derived from name and phone.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.store.Create(r.Context(), req.toModel())
	if err != nil {
		if errors.Is(err, customer.ErrExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "customer with this name and phone already exists"})
			return
		}
		writeError(w, h.logger, "create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(c))
}

// Update replaces name, phone and address. The id is kept.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		writeError(w, h.logger, "update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

// Delete removes a customer.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orders returns the customer's order history.
func (h *CustomerHandler) Orders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Get(r.Context(), id); err != nil {
		writeError(w, h.logger, "get customer", err)
		return
	}
	list, err := h.orders.ListCustomer(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "list customer orders", err)
		return
	}
	resp := make([]customerOrderResponse, len(list))
	for i, o := range list {
		resp[i] = customerOrderResponse{ID: o.ID, Order: o}
	}
	writeJSON(w, http.StatusOK, resp)
}
