package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/catalog"
	"github.com/tiffindesk/api/internal/handler"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/store"
	"go.uber.org/zap"
)

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	db, err := store.NewMemory("", nil)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newCatalogRouter(t *testing.T) (http.Handler, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New(newMemoryStore(t))
	r := chi.NewRouter()
	r.Route("/catalog", func(r chi.Router) {
		h := handler.NewCatalogHandler(cat, zap.NewNop())
		h.RegisterRoutes(r)
		h.RegisterWriteRoutes(r)
	})
	r.Route("/menus", func(r chi.Router) {
		h := handler.NewMenuHandler(cat, zap.NewNop())
		h.RegisterRoutes(r)
		h.RegisterWriteRoutes(r)
	})
	return r, cat
}

func TestCatalog_UpsertAndList(t *testing.T) {
	r, _ := newCatalogRouter(t)

	expectStatus(t, doJSON(t, r, "PUT", "/catalog/breakfast/items", map[string]any{"name": "Upma", "price": "40"}), http.StatusOK)
	expectStatus(t, doJSON(t, r, "PUT", "/catalog/breakfast/items", map[string]any{"name": "Idli", "price": "30"}), http.StatusOK)
	// Same name replaces the price.
	expectStatus(t, doJSON(t, r, "PUT", "/catalog/breakfast/items", map[string]any{"name": "Idli", "price": "35"}), http.StatusOK)

	rr := doJSON(t, r, "GET", "/catalog/breakfast/items", nil)
	expectStatus(t, rr, http.StatusOK)

	var items []model.CatalogItem
	decodeInto(t, rr, &items)
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if items[0].Name != "Idli" || items[0].Price.String() != "35" {
		t.Errorf("first item: got %s %s, want Idli 35", items[0].Name, items[0].Price)
	}
}

func TestCatalog_SubcategoryRequiredForLunchWrites(t *testing.T) {
	r, _ := newCatalogRouter(t)

	rr := doJSON(t, r, "PUT", "/catalog/lunch/items", map[string]any{"name": "Pappu", "price": "60"})
	expectStatus(t, rr, http.StatusBadRequest)

	expectStatus(t, doJSON(t, r, "PUT", "/catalog/lunch/daal/items", map[string]any{"name": "Pappu", "price": "60"}), http.StatusOK)
	expectStatus(t, doJSON(t, r, "PUT", "/catalog/lunch/curry/items", map[string]any{"name": "Bendakaya", "price": "70"}), http.StatusOK)

	// Reading lunch without a subcategory merges them all.
	rr = doJSON(t, r, "GET", "/catalog/lunch/items", nil)
	expectStatus(t, rr, http.StatusOK)
	var items []model.CatalogItem
	decodeInto(t, rr, &items)
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}

	rr = doJSON(t, r, "GET", "/catalog/lunch/daal/items", nil)
	expectStatus(t, rr, http.StatusOK)
	items = nil
	decodeInto(t, rr, &items)
	if len(items) != 1 || items[0].Name != "Pappu" {
		t.Errorf("daal items: got %+v", items)
	}
}

func TestCatalog_NegativePrice(t *testing.T) {
	r, _ := newCatalogRouter(t)

	rr := doJSON(t, r, "PUT", "/catalog/bakery/items", map[string]any{"name": "Cake", "price": "-1"})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestCatalog_Delete(t *testing.T) {
	r, _ := newCatalogRouter(t)
	expectStatus(t, doJSON(t, r, "PUT", "/catalog/dinner/pickle/items", map[string]any{"name": "Avakaya", "price": "20"}), http.StatusOK)

	expectStatus(t, doJSON(t, r, "DELETE", "/catalog/dinner/pickle/items/Avakaya", nil), http.StatusNoContent)
	expectStatus(t, doJSON(t, r, "DELETE", "/catalog/dinner/pickle/items/Avakaya", nil), http.StatusNotFound)
}

func TestCatalog_EmptyListIsArray(t *testing.T) {
	r, _ := newCatalogRouter(t)

	rr := doJSON(t, r, "GET", "/catalog/bakery/items", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("body: got %q, want []", got)
	}
}

func TestMenus_SaveGetAndAnnounce(t *testing.T) {
	r, _ := newCatalogRouter(t)

	rr := doJSON(t, r, "PUT", "/menus/2024-05-01", map[string]any{
		"breakfast": []map[string]any{{"name": "Idli", "telugu": "ఇడ్లీ", "price": "30"}},
		"lunch":     []map[string]any{{"name": "Pappu", "price": "60"}},
	})
	expectStatus(t, rr, http.StatusOK)

	rr = doJSON(t, r, "GET", "/menus/2024-05-01/breakfast", nil)
	expectStatus(t, rr, http.StatusOK)
	var items []model.CatalogItem
	decodeInto(t, rr, &items)
	if len(items) != 1 || items[0].LocalizedName != "ఇడ్లీ" {
		t.Fatalf("breakfast menu: got %+v", items)
	}

	expectStatus(t, doJSON(t, r, "GET", "/menus/2024-05-01/dinner", nil), http.StatusNotFound)

	rr = doJSON(t, r, "POST", "/menus/2024-05-01/announcement", nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)
	english, _ := resp["english"].(string)
	if english == "" {
		t.Fatal("expected an english announcement")
	}
	if resp["bakery"] != "" {
		t.Errorf("bakery announcement should be empty, got %v", resp["bakery"])
	}
}

func TestMenus_InvalidDate(t *testing.T) {
	r, _ := newCatalogRouter(t)

	rr := doJSON(t, r, "PUT", "/menus/01-05-2024", map[string]any{
		"lunch": []map[string]any{{"name": "Pappu", "price": "60"}},
	})
	expectStatus(t, rr, http.StatusBadRequest)

	expectStatus(t, doJSON(t, r, "GET", "/menus/tomorrow", nil), http.StatusBadRequest)
}

// --- Persistence failure ---

type mockCatalogStore struct {
	handler.CatalogStore
	itemsFn func(ctx context.Context, scope catalog.Scope) ([]model.CatalogItem, error)
}

func (m *mockCatalogStore) Items(ctx context.Context, scope catalog.Scope) ([]model.CatalogItem, error) {
	return m.itemsFn(ctx, scope)
}

func TestCatalog_PersistenceFailureHidesDetail(t *testing.T) {
	mock := &mockCatalogStore{itemsFn: func(context.Context, catalog.Scope) ([]model.CatalogItem, error) {
		return nil, apperr.Persistence("read catalog", errors.New("connection refused to 10.0.0.5"))
	}}
	r := chi.NewRouter()
	handler.NewCatalogHandler(mock, zap.NewNop()).RegisterRoutes(r)

	rr := doJSON(t, r, "GET", "/breakfast/items", nil)
	expectStatus(t, rr, http.StatusBadGateway)
	resp := decodeResponse(t, rr)
	if resp["error"] != "storage unavailable, try again" {
		t.Errorf("error: got %v", resp["error"])
	}
}
