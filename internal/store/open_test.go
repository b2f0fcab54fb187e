package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryPersistsOnClose(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	db, closeDB, err := Open(ctx, Options{Backend: BackendMemory, SnapshotPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "customers/asha_1", customer{Name: "Asha", Phone: "1"}))
	closeDB()

	db, closeDB, err = Open(ctx, Options{SnapshotPath: path}, nil)
	require.NoError(t, err)
	defer closeDB()

	snap, err := db.Get(ctx, "customers/asha_1/name")
	require.NoError(t, err)
	assert.Equal(t, "Asha", snap.Value())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "redis"}, nil)
	assert.ErrorContains(t, err, "unknown store backend")
}
