package session_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiffindesk/api/internal/apperr"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/session"
)

func order(id, customer, meal string, items ...model.LineItem) model.Order {
	return model.Order{ID: id, CustomerID: customer, CustomerName: customer, MealType: meal, Items: items}
}

func item(name string, qty int) model.LineItem {
	return model.LineItem{Name: name, UnitPrice: decimal.NewFromInt(10), Quantity: qty}
}

func newDashboards(t *testing.T, kv session.KV) *session.Dashboards {
	t.Helper()
	d, err := session.New(kv, nil)
	require.NoError(t, err)
	return d
}

func TestFoldInSumsExactlyTheFoldedOrders(t *testing.T) {
	orders := []model.Order{
		order("o1", "Asha", "lunch", item("Rice", 2), item("Dal", 1)),
		order("o2", "Ravi", "lunch", item("Rice", 1)),
		order("o3", "Asha", "dinner", item("Chapati", 4)),
	}

	forward := newDashboards(t, session.NewMemoryKV())
	backward := newDashboards(t, session.NewMemoryKV())
	for i := range orders {
		_, err := forward.FoldIn(orders[i])
		require.NoError(t, err)
		_, err = backward.FoldIn(orders[len(orders)-1-i])
		require.NoError(t, err)
	}

	snap := forward.Snapshot()
	assert.Equal(t, 3, snap.Cooking["lunch"]["Rice"])
	assert.Equal(t, 1, snap.Cooking["lunch"]["Dal"])
	assert.Equal(t, 4, snap.Cooking["dinner"]["Chapati"])
	assert.Equal(t, 2, snap.Packaging["lunch"]["Asha"]["Rice"])
	assert.Equal(t, 1, snap.Packaging["lunch"]["Ravi"]["Rice"])
	assert.Equal(t, snap, backward.Snapshot())
}

func TestFoldInKeepsCustomMeals(t *testing.T) {
	d := newDashboards(t, session.NewMemoryKV())
	_, err := d.FoldIn(order("o1", "Asha", "festival_special", item("Pulihora", 2)))
	require.NoError(t, err)

	snap := d.Snapshot()
	assert.Equal(t, 2, snap.Cooking["festival_special"]["Pulihora"])
	assert.Equal(t, 2, snap.Packaging["festival_special"]["Asha"]["Pulihora"])
}

func TestFoldInTwiceCountsOnce(t *testing.T) {
	d := newDashboards(t, session.NewMemoryKV())
	o := order("o1", "Asha", "lunch", item("Rice", 2))

	folded, err := d.FoldIn(o)
	require.NoError(t, err)
	assert.True(t, folded)

	folded, err = d.FoldIn(o)
	require.NoError(t, err)
	assert.False(t, folded)
	assert.Equal(t, 2, d.Snapshot().Cooking["lunch"]["Rice"])
}

func TestFoldInRequiresOrderID(t *testing.T) {
	d := newDashboards(t, session.NewMemoryKV())
	_, err := d.FoldIn(order("", "Asha", "lunch", item("Rice", 1)))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestClearResetsTalliesAndLedger(t *testing.T) {
	d := newDashboards(t, session.NewMemoryKV())
	o := order("o1", "Asha", "lunch", item("Rice", 2))
	_, err := d.FoldIn(o)
	require.NoError(t, err)

	require.NoError(t, d.Clear())
	assert.Empty(t, d.Snapshot().Cooking)

	folded, err := d.FoldIn(o)
	require.NoError(t, err)
	assert.True(t, folded)
}

func TestStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	first := newDashboards(t, session.NewFileKV(path))
	o := order("o1", "Asha", "lunch", item("Rice", 2))
	_, err := first.FoldIn(o)
	require.NoError(t, err)

	second := newDashboards(t, session.NewFileKV(path))
	assert.Equal(t, 2, second.Snapshot().Cooking["lunch"]["Rice"])

	folded, err := second.FoldIn(o)
	require.NoError(t, err)
	assert.False(t, folded, "ledger must survive restart")
}

type failingKV struct{ session.KV }

func (failingKV) Save(string, any) error { return errors.New("disk full") }

func TestFailedSaveLeavesTalliesUnchanged(t *testing.T) {
	d := newDashboards(t, failingKV{session.NewMemoryKV()})

	_, err := d.FoldIn(order("o1", "Asha", "lunch", item("Rice", 2)))
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Empty(t, d.Snapshot().Cooking)
}

func TestSnapshotIsACopy(t *testing.T) {
	d := newDashboards(t, session.NewMemoryKV())
	_, err := d.FoldIn(order("o1", "Asha", "lunch", item("Rice", 2)))
	require.NoError(t, err)

	snap := d.Snapshot()
	snap.Cooking["lunch"]["Rice"] = 99
	assert.Equal(t, 2, d.Snapshot().Cooking["lunch"]["Rice"])
}
