package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenAssembleRoundTrip(t *testing.T) {
	value := map[string]any{
		"date":     "2024-05-01",
		"mealType": "lunch",
		"items": []any{
			map[string]any{"name": "Rice", "price": 50, "quantity": 2},
			map[string]any{"name": "Dal", "price": 40, "quantity": 1},
		},
		"delivered": false,
	}
	l := leaves{}
	require.NoError(t, writeValue(l, "orders/o1", value))

	assert.Equal(t, json.RawMessage(`"Rice"`), l["orders/o1/items/0/name"])
	assert.Equal(t, json.RawMessage(`false`), l["orders/o1/delivered"])

	got, err := assemble("orders/o1", l)
	require.NoError(t, err)
	m := got.(map[string]any)
	items, ok := m["items"].([]any)
	require.True(t, ok, "contiguous index keys should come back as an array")
	require.Len(t, items, 2)
	assert.Equal(t, "Dal", items[1].(map[string]any)["name"])
	assert.Equal(t, json.Number("50"), items[0].(map[string]any)["price"])
}

func TestAssembleLeavesSparseIndexesAsMap(t *testing.T) {
	l := leaves{
		"list/0": json.RawMessage(`"a"`),
		"list/2": json.RawMessage(`"c"`),
	}
	got, err := assemble("list", l)
	require.NoError(t, err)
	_, isMap := got.(map[string]any)
	assert.True(t, isMap)
}

func TestWriteReplacesScalarAncestor(t *testing.T) {
	l := leaves{"a": json.RawMessage(`1`)}
	require.NoError(t, writeValue(l, "a/b", "x"))

	_, hasScalar := l["a"]
	assert.False(t, hasScalar)
	assert.Equal(t, json.RawMessage(`"x"`), l["a/b"])
}

func TestWriteNilRemovesSubtree(t *testing.T) {
	l := leaves{}
	require.NoError(t, writeValue(l, "c/1", map[string]any{"name": "Asha", "phone": "98480"}))
	require.NoError(t, writeValue(l, "c/2", map[string]any{"name": "Ravi"}))
	require.NoError(t, writeValue(l, "c/1", nil))

	got, err := assemble("c", l)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"2": map[string]any{"name": "Ravi"}}, got)
}

func TestPrefixDoesNotMatchSiblingWithSharedStem(t *testing.T) {
	l := leaves{
		"menus/a":  json.RawMessage(`1`),
		"menus/ab": json.RawMessage(`2`),
	}
	got, err := assemble("menus/a", l)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), got)
}

func TestCleanRejectsReservedCharacters(t *testing.T) {
	_, err := Clean("customers/a.b")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = Clean("customers//a")
	assert.ErrorIs(t, err, ErrInvalidPath)

	p, err := Clean("/customers/a/")
	require.NoError(t, err)
	assert.Equal(t, "customers/a", p)
}

func TestRelated(t *testing.T) {
	assert.True(t, related("customerOrderHistory", "customerOrderHistory/c1/orders/o1"))
	assert.True(t, related("customerOrderHistory/c1/orders/o1", "customerOrderHistory"))
	assert.True(t, related("", "menus"))
	assert.False(t, related("menus/2024-05-01", "menus/2024-05-02"))
	assert.False(t, related("customers", "customerOrderHistory"))
}
