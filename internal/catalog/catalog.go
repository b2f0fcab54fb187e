// Package catalog manages the priced item list under inventory/ and the
// per-date menus under menus/.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/store"
)

const (
	inventoryPath = "inventory"
	menusPath     = "menus"
)

// Errors returned by the catalog.
var (
	ErrMealRequired       = fmt.Errorf("%w: meal type is required", apperr.ErrValidation)
	ErrInvalidSubcategory = fmt.Errorf("%w: invalid subcategory", apperr.ErrValidation)
	ErrNameRequired       = fmt.Errorf("%w: name is required", apperr.ErrValidation)
	ErrNegativePrice      = fmt.Errorf("%w: price must be >= 0", apperr.ErrValidation)
	ErrItemNotFound       = fmt.Errorf("%w: catalog item not found", apperr.ErrNotFound)
	ErrMenuNotFound       = fmt.Errorf("%w: no menu set for this date and meal", apperr.ErrNotFound)
)

// Catalog reads and writes catalog items and menus.
type Catalog struct {
	db store.Store
}

// New creates a Catalog.
func New(db store.Store) *Catalog {
	return &Catalog{db: db}
}

// Scope names one list of the catalog: a meal type, plus a subcategory for
// lunch and dinner.
type Scope struct {
	MealType    string
	Subcategory string
}

func (s Scope) validate(requireSub bool) error {
	if s.MealType == "" {
		return ErrMealRequired
	}
	if enum.HasSubcategories(s.MealType) {
		if s.Subcategory == "" && !requireSub {
			return nil
		}
		if !enum.IsValidSubcategory(s.Subcategory) {
			return fmt.Errorf("%w: %q", ErrInvalidSubcategory, s.Subcategory)
		}
		return nil
	}
	if s.Subcategory != "" {
		return fmt.Errorf("%w: %s has no subcategories", ErrInvalidSubcategory, s.MealType)
	}
	return nil
}

func (s Scope) path() string {
	return store.Join(inventoryPath, s.MealType, s.Subcategory)
}

// Items returns the items in scope sorted by name (ordinal, case-sensitive).
// For lunch and dinner an empty subcategory returns every subcategory.
func (c *Catalog) Items(ctx context.Context, scope Scope) ([]model.CatalogItem, error) {
	if err := scope.validate(false); err != nil {
		return nil, err
	}
	var items []model.CatalogItem
	if enum.HasSubcategories(scope.MealType) && scope.Subcategory == "" {
		for _, sub := range enum.Subcategories {
			list, err := c.list(ctx, Scope{MealType: scope.MealType, Subcategory: sub})
			if err != nil {
				return nil, err
			}
			items = append(items, list...)
		}
	} else {
		list, err := c.list(ctx, scope)
		if err != nil {
			return nil, err
		}
		items = list
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// UpsertItem replaces the first item with the same name, or appends it.
func (c *Catalog) UpsertItem(ctx context.Context, scope Scope, item model.CatalogItem) error {
	if err := scope.validate(true); err != nil {
		return err
	}
	if err := validateItem(item); err != nil {
		return err
	}
	list, err := c.list(ctx, scope)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].Name == item.Name {
			list[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, item)
	}
	if err := c.db.Set(ctx, scope.path(), list); err != nil {
		return apperr.Persistence("save catalog", err)
	}
	return nil
}

// DeleteItem removes every item called name from scope.
func (c *Catalog) DeleteItem(ctx context.Context, scope Scope, name string) error {
	if err := scope.validate(true); err != nil {
		return err
	}
	list, err := c.list(ctx, scope)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, it := range list {
		if it.Name != name {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(list) {
		return fmt.Errorf("%w: %s", ErrItemNotFound, name)
	}
	if err := c.db.Set(ctx, scope.path(), kept); err != nil {
		return apperr.Persistence("save catalog", err)
	}
	return nil
}

func (c *Catalog) list(ctx context.Context, scope Scope) ([]model.CatalogItem, error) {
	snap, err := c.db.Get(ctx, scope.path())
	if err != nil {
		return nil, apperr.Persistence("read catalog", err)
	}
	var items []model.CatalogItem
	for _, child := range snap.Children() {
		var it model.CatalogItem
		if err := child.Decode(&it); err != nil {
			return nil, apperr.Persistence("decode catalog", err)
		}
		items = append(items, it)
	}
	return items, nil
}

func validateItem(it model.CatalogItem) error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrNameRequired
	}
	if it.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// SaveMenu stores the menu for each meal in menus for date, leaving the
// date's other meals alone. Meal keys are normalised with model.MealKey.
func (c *Catalog) SaveMenu(ctx context.Context, date string, menus map[string][]model.CatalogItem) error {
	if _, err := model.ParseDate(date); err != nil {
		return apperr.Validation("%v", err)
	}
	if len(menus) == 0 {
		return apperr.Validation("at least one meal is required")
	}
	fields := make(map[string]any, len(menus))
	for meal, items := range menus {
		key := model.MealKey(meal)
		if key == "" {
			return ErrMealRequired
		}
		for i, it := range items {
			if err := validateItem(it); err != nil {
				return fmt.Errorf("%s item[%d]: %w", key, i, err)
			}
		}
		fields[key] = items
	}
	if err := c.db.Update(ctx, store.Join(menusPath, date), fields); err != nil {
		return apperr.Persistence("save menu", err)
	}
	return nil
}

// Menu returns the menu for date and meal in saved order.
func (c *Catalog) Menu(ctx context.Context, date, mealType string) ([]model.CatalogItem, error) {
	if mealType == "" {
		return nil, ErrMealRequired
	}
	snap, err := c.db.Get(ctx, store.Join(menusPath, date, mealType))
	if err != nil {
		return nil, apperr.Persistence("read menu", err)
	}
	var items []model.CatalogItem
	for _, child := range snap.Children() {
		var it model.CatalogItem
		if err := child.Decode(&it); err != nil {
			return nil, apperr.Persistence("decode menu", err)
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrMenuNotFound, date, mealType)
	}
	return items, nil
}

// Menus returns every meal's menu for date, keyed by meal.
func (c *Catalog) Menus(ctx context.Context, date string) (map[string][]model.CatalogItem, error) {
	snap, err := c.db.Get(ctx, store.Join(menusPath, date))
	if err != nil {
		return nil, apperr.Persistence("read menus", err)
	}
	out := map[string][]model.CatalogItem{}
	for _, meal := range snap.Children() {
		var items []model.CatalogItem
		if err := meal.Decode(&items); err != nil {
			return nil, apperr.Persistence("decode menus", err)
		}
		out[meal.Key()] = items
	}
	return out, nil
}
