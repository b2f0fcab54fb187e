package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/tiffindesk/api/internal/announce"
	"github.com/tiffindesk/api/internal/catalog"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

// CatalogStore defines the catalog methods needed by the catalog and menu
// handlers. Satisfied by *catalog.Catalog.
type CatalogStore interface {
	Items(ctx context.Context, scope catalog.Scope) ([]model.CatalogItem, error)
	UpsertItem(ctx context.Context, scope catalog.Scope, item model.CatalogItem) error
	DeleteItem(ctx context.Context, scope catalog.Scope, name string) error
	SaveMenu(ctx context.Context, date string, menus map[string][]model.CatalogItem) error
	Menu(ctx context.Context, date, mealType string) ([]model.CatalogItem, error)
	Menus(ctx context.Context, date string) (map[string][]model.CatalogItem, error)
}

// CatalogHandler serves the per-meal price lists.
type CatalogHandler struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger}
}

// RegisterRoutes registers catalog reads. Expected under /catalog.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{meal}/items", h.List)
	r.Get("/{meal}/{sub}/items", h.List)
}

// RegisterWriteRoutes registers catalog writes. Expected under /catalog.
func (h *CatalogHandler) RegisterWriteRoutes(r chi.Router) {
	r.Put("/{meal}/items", h.Upsert)
	r.Put("/{meal}/{sub}/items", h.Upsert)
	r.Delete("/{meal}/items/{name}", h.Delete)
	r.Delete("/{meal}/{sub}/items/{name}", h.Delete)
}

func scopeFromURL(r *http.Request) catalog.Scope {
	return catalog.Scope{
		MealType:    chi.URLParam(r, "meal"),
		Subcategory: chi.URLParam(r, "sub"),
	}
}

// List returns the items in scope sorted by name.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Items(r.Context(), scopeFromURL(r))
	if err != nil {
		writeError(w, h.logger, "list catalog", err)
		return
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Upsert adds an item or replaces the one with the same name.
func (h *CatalogHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var item model.CatalogItem
	if err := decodeJSON(r, &item); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.store.UpsertItem(r.Context(), scopeFromURL(r), item); err != nil {
		writeError(w, h.logger, "upsert catalog item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete removes every item with the given name.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		badRequest(w, "invalid item name")
		return
	}
	if err := h.store.DeleteItem(r.Context(), scopeFromURL(r), name); err != nil {
		writeError(w, h.logger, "delete catalog item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MenuHandler serves the dated menus and their announcements.
type MenuHandler struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store CatalogStore, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, logger: logger}
}

// RegisterRoutes registers menu reads. Expected under /menus.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{date}", h.ListForDate)
	r.Get("/{date}/{meal}", h.Get)
}

// RegisterWriteRoutes registers menu writes. Expected under /menus.
func (h *MenuHandler) RegisterWriteRoutes(r chi.Router) {
	r.Put("/{date}", h.Save)
	r.Post("/{date}/announcement", h.Announce)
}

type announceRequest struct {
	Custom *announce.CustomMenu `json:"custom"`
}

// Save stores the posted meals for the date; other meals are untouched.
func (h *MenuHandler) Save(w http.ResponseWriter, r *http.Request) {
	var menus map[string][]model.CatalogItem
	if err := decodeJSON(r, &menus); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	date := chi.URLParam(r, "date")
	if err := h.store.SaveMenu(r.Context(), date, menus); err != nil {
		writeError(w, h.logger, "save menu", err)
		return
	}
	saved, err := h.store.Menus(r.Context(), date)
	if err != nil {
		writeError(w, h.logger, "read menus", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Get returns one meal's menu.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Menu(r.Context(), chi.URLParam(r, "date"), chi.URLParam(r, "meal"))
	if err != nil {
		writeError(w, h.logger, "read menu", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListForDate returns every meal's menu for a date.
func (h *MenuHandler) ListForDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := model.ParseDate(date); err != nil {
		badRequest(w, err.Error())
		return
	}
	menus, err := h.store.Menus(r.Context(), date)
	if err != nil {
		writeError(w, h.logger, "read menus", err)
		return
	}
	writeJSON(w, http.StatusOK, menus)
}

// Announce composes the customer-facing messages for the date's menus. The
// body may carry a one-off custom menu.
func (h *MenuHandler) Announce(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	day, err := model.ParseDate(date)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req announceRequest
	if err := decodeJSON(r, &req); err != nil && err != errEmptyBody {
		badRequest(w, "invalid request body")
		return
	}
	menus, err := h.store.Menus(r.Context(), date)
	if err != nil {
		writeError(w, h.logger, "read menus", err)
		return
	}
	writeJSON(w, http.StatusOK, announce.Compose(announce.FromStored(day, menus, req.Custom)))
}
