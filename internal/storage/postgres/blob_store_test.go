package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-flow-lab/internal/storage"
)

func TestBlobStore_PutGetReplace(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBlobStore(pool)

	_, err := store.Get(ctx, "snapshots", "snapshot_202406_202411")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Put(ctx, "snapshots", "snapshot_202406_202411", []byte("v1")))
	require.NoError(t, store.Put(ctx, "snapshots", "snapshot_202406_202411", []byte("v2")))

	got, err := store.Get(ctx, "snapshots", "snapshot_202406_202411")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestBlobStore_Clear(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBlobStore(pool)

	require.NoError(t, store.Put(ctx, "metrics", "ttm_202406", []byte("a")))
	require.NoError(t, store.Put(ctx, "snapshots", "snapshot_202406_202411", []byte("b")))

	require.NoError(t, store.Clear(ctx, "metrics"))

	_, err := store.Get(ctx, "metrics", "ttm_202406")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Get(ctx, "snapshots", "snapshot_202406_202411")
	assert.NoError(t, err)
}
