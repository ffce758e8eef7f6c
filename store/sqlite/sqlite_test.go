package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bakery-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadCollections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.SaveCollections(ctx, map[string][]byte{
		"ingredients": []byte(`[{"id":"flour"}]`),
		"payroll":     []byte(`{"opaque":true}`),
	})
	require.NoError(t, err)

	loaded, err := store.LoadCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"flour"}]`, string(loaded["ingredients"]))
	assert.Equal(t, `{"opaque":true}`, string(loaded["payroll"]))
}

func TestSaveCollections_ReplacesWholeSnapshot(t *testing.T) {
	// GIVEN: A stored snapshot with skus, remitos and an opaque payroll key
	// WHEN: A snapshot holding only skus is saved (e.g. after a backup import)
	// THEN: The keys it lacks are gone on the next load

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SaveCollections(ctx, map[string][]byte{
		"skus":    []byte(`[1]`),
		"remitos": []byte(`[]`),
		"payroll": []byte(`{"opaque":true}`),
	}))
	require.NoError(t, store.SaveCollections(ctx, map[string][]byte{
		"skus": []byte(`[1,2]`),
	}))

	loaded, err := store.LoadCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, `[1,2]`, string(loaded["skus"]))
	assert.NotContains(t, loaded, "payroll")

	require.NoError(t, store.SaveCollections(ctx, map[string][]byte{}))
	loaded, err = store.LoadCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestInfoAndReset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveCollections(ctx, map[string][]byte{
		"skus":        []byte(`[1,2]`),
		"ingredients": []byte(`[]`),
	}))

	info, err := store.Info(ctx)
	require.NoError(t, err)
	require.Len(t, info, 2)
	assert.Equal(t, "ingredients", info[0].Key)
	assert.Equal(t, 5, info[1].Bytes)
	assert.False(t, info[1].UpdatedAt.IsZero())

	require.NoError(t, store.Reset(ctx))
	loaded, err := store.LoadCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestEmptyDatabaseLoadsNothing(t *testing.T) {
	loaded, err := newTestStore(t).LoadCollections(context.Background())

	require.NoError(t, err)
	assert.Empty(t, loaded)
}
