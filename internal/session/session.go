// Package session keeps the cooking and packaging tallies for the current
// shift. They grow with every confirmed order until staff clear them and are
// deliberately independent of the order store.
package session

import (
	"fmt"
	"sync"

	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

const stateKey = "sessionDashboards"

// ErrMissingOrderID is returned when folding an order that was never persisted.
var ErrMissingOrderID = fmt.Errorf("%w: order has no id", apperr.ErrValidation)

// Snapshot is a copy of the running tallies.
type Snapshot struct {
	Cooking   map[string]map[string]int            `json:"cookingTotals"`
	Packaging map[string]map[string]map[string]int `json:"packagingTotals"`
}

type state struct {
	Snapshot
	// Folded records every order already counted, keyed customerId/orderId.
	Folded map[string]bool `json:"folded"`
}

func emptyState() state {
	return state{
		Snapshot: Snapshot{
			Cooking:   map[string]map[string]int{},
			Packaging: map[string]map[string]map[string]int{},
		},
		Folded: map[string]bool{},
	}
}

// Dashboards is safe for concurrent use.
type Dashboards struct {
	mu     sync.Mutex
	kv     KV
	state  state
	logger *zap.Logger
}

// New loads the persisted tallies from kv.
func New(kv KV, logger *zap.Logger) (*Dashboards, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := emptyState()
	if _, err := kv.Load(stateKey, &st); err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}
	if st.Cooking == nil {
		st.Cooking = map[string]map[string]int{}
	}
	if st.Packaging == nil {
		st.Packaging = map[string]map[string]map[string]int{}
	}
	if st.Folded == nil {
		st.Folded = map[string]bool{}
	}
	return &Dashboards{kv: kv, state: st, logger: logger}, nil
}

// FoldIn adds o's quantities to the tallies. Each order is counted once:
// folding an order id that was already folded returns false and changes
// nothing.
func (d *Dashboards) FoldIn(o model.Order) (bool, error) {
	if o.ID == "" {
		return false, ErrMissingOrderID
	}
	key := o.CustomerID + "/" + o.ID

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Folded[key] {
		return false, nil
	}

	next := d.state.clone()
	next.Folded[key] = true
	cooking := next.Cooking[o.MealType]
	if cooking == nil {
		cooking = map[string]int{}
		next.Cooking[o.MealType] = cooking
	}
	packs := next.Packaging[o.MealType]
	if packs == nil {
		packs = map[string]map[string]int{}
		next.Packaging[o.MealType] = packs
	}
	pack := packs[o.CustomerName]
	if pack == nil {
		pack = map[string]int{}
		packs[o.CustomerName] = pack
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			continue
		}
		cooking[it.Name] += it.Quantity
		pack[it.Name] += it.Quantity
	}

	if err := d.kv.Save(stateKey, next); err != nil {
		return false, apperr.Persistence("save session", err)
	}
	d.state = next
	d.logger.Debug("order folded into session",
		zap.String("order_id", o.ID), zap.String("meal", o.MealType))
	return true, nil
}

// Clear empties both tallies and the fold ledger.
func (d *Dashboards) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := emptyState()
	if err := d.kv.Save(stateKey, next); err != nil {
		return apperr.Persistence("clear session", err)
	}
	d.state = next
	return nil
}

// Snapshot returns a deep copy of the tallies.
func (d *Dashboards) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone().Snapshot
}

func (s state) clone() state {
	out := emptyState()
	for meal, items := range s.Cooking {
		m := make(map[string]int, len(items))
		for k, v := range items {
			m[k] = v
		}
		out.Cooking[meal] = m
	}
	for meal, customers := range s.Packaging {
		cm := make(map[string]map[string]int, len(customers))
		for name, items := range customers {
			m := make(map[string]int, len(items))
			for k, v := range items {
				m[k] = v
			}
			cm[name] = m
		}
		out.Packaging[meal] = cm
	}
	for k := range s.Folded {
		out.Folded[k] = true
	}
	return out
}
