// Package aggregate derives cooking, packaging and revenue views from a set of
// orders. Everything here is pure: the same input always yields the same
// result and nothing is cached between calls.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/enum"
	"github.com/tiffindesk/api/internal/model"
)

// Filter narrows the orders that are aggregated. Empty fields match all.
type Filter struct {
	Date                string
	MealType            string
	CustomerNamePattern string
}

// Match reports whether o passes the filter. Date and meal type match
// exactly; the customer pattern is a case-insensitive substring.
func (f Filter) Match(o model.Order) bool {
	if f.Date != "" && o.Date != f.Date {
		return false
	}
	if f.MealType != "" && o.MealType != f.MealType {
		return false
	}
	if f.CustomerNamePattern != "" &&
		!strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(strings.TrimSpace(f.CustomerNamePattern))) {
		return false
	}
	return true
}

// PackedItem is one line of a customer's packaging list.
type PackedItem struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Amount    decimal.Decimal `json:"amount"`
}

// Result is the output of Aggregate.
//
// GrandTotal is Σ MealTotals + Σ DeliveryTotals + UnbucketedTotal, where
// UnbucketedTotal is the full value of orders whose meal type is not one of the
// engine's meals.
type Result struct {
	Cooking         map[string]map[string]int                   `json:"perItemCookingTotals"`
	Packaging       map[string]map[string]map[string]PackedItem `json:"perCustomerPackaging"`
	MealTotals      map[string]decimal.Decimal                  `json:"mealTotals"`
	DeliveryTotals  map[string]decimal.Decimal                  `json:"deliveryTotals"`
	UnbucketedTotal decimal.Decimal                             `json:"unbucketedTotal"`
	GrandTotal      decimal.Decimal                             `json:"grandTotal"`
	OrderCount      int                                         `json:"orderCount"`
}

func newResult() Result {
	return Result{
		Cooking:        map[string]map[string]int{},
		Packaging:      map[string]map[string]map[string]PackedItem{},
		MealTotals:     map[string]decimal.Decimal{},
		DeliveryTotals: map[string]decimal.Decimal{},
	}
}

// Engine aggregates orders into per-meal buckets for a fixed set of meals.
type Engine struct {
	meals map[string]bool
}

// NewEngine returns an engine bucketing the given meals.
func NewEngine(meals ...string) Engine {
	e := Engine{meals: make(map[string]bool, len(meals))}
	for _, m := range meals {
		e.meals[m] = true
	}
	return e
}

// Default buckets breakfast, lunch, dinner and bakery.
var Default = NewEngine(enum.MealTypes...)

// Aggregate runs the default engine.
func Aggregate(orders []model.Order, f Filter) Result {
	return Default.Aggregate(orders, f)
}

// Aggregate sums the orders that pass f.
func (e Engine) Aggregate(orders []model.Order, f Filter) Result {
	r := newResult()
	for _, o := range orders {
		if !f.Match(o) {
			continue
		}
		r.OrderCount++
		items := o.ItemsTotal()
		r.GrandTotal = r.GrandTotal.Add(items).Add(o.DeliveryCharge)

		if !e.meals[o.MealType] {
			r.UnbucketedTotal = r.UnbucketedTotal.Add(items).Add(o.DeliveryCharge)
			continue
		}
		meal := o.MealType
		cooking := r.Cooking[meal]
		if cooking == nil {
			cooking = map[string]int{}
			r.Cooking[meal] = cooking
		}
		packs := r.Packaging[meal]
		if packs == nil {
			packs = map[string]map[string]PackedItem{}
			r.Packaging[meal] = packs
		}
		pack := packs[o.CustomerName]
		if pack == nil {
			pack = map[string]PackedItem{}
			packs[o.CustomerName] = pack
		}
		for _, it := range o.Items {
			if it.Quantity <= 0 {
				continue
			}
			cooking[it.Name] += it.Quantity
			p, ok := pack[it.Name]
			if !ok {
				p.UnitPrice = it.UnitPrice
			}
			p.Quantity += it.Quantity
			p.Amount = p.Amount.Add(it.Amount())
			pack[it.Name] = p
		}
		r.MealTotals[meal] = r.MealTotals[meal].Add(items)
		r.DeliveryTotals[meal] = r.DeliveryTotals[meal].Add(o.DeliveryCharge)
	}
	return r
}

// CustomerOrders is one customer's history grouped by meal type.
type CustomerOrders struct {
	CustomerID   string                   `json:"customerId"`
	CustomerName string                   `json:"customerName"`
	Meals        map[string][]model.Order `json:"meals"`
	Total        decimal.Decimal          `json:"total"`
	Due          decimal.Decimal          `json:"due"`
}

// PerCustomerOrders groups the orders passing f by customer, then meal type.
// Customers are sorted by name, then id; orders keep their input order.
func PerCustomerOrders(orders []model.Order, f Filter) []CustomerOrders {
	idx := map[string]int{}
	var out []CustomerOrders
	for _, o := range orders {
		if !f.Match(o) {
			continue
		}
		i, ok := idx[o.CustomerID]
		if !ok {
			i = len(out)
			idx[o.CustomerID] = i
			out = append(out, CustomerOrders{
				CustomerID:   o.CustomerID,
				CustomerName: o.CustomerName,
				Meals:        map[string][]model.Order{},
			})
		}
		c := &out[i]
		c.Meals[o.MealType] = append(c.Meals[o.MealType], o)
		c.Total = c.Total.Add(o.GrandTotal)
		c.Due = c.Due.Add(o.Due())
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CustomerName != out[b].CustomerName {
			return out[a].CustomerName < out[b].CustomerName
		}
		return out[a].CustomerID < out[b].CustomerID
	})
	return out
}
