package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

func testRecord() *domain.CacheRecord {
	return domain.NewDiffRecord(domain.Fingerprint("hello"), []domain.EditBatch{{
		{NewText: "a", Range: domain.NewRange(1, 1, 1, 1)},
	}})
}

func TestRecoveryStore_PersistAndGet(t *testing.T) {
	store := NewRecoveryStore()
	ctx := context.Background()
	id := domain.ResourceID("file:///tmp/a.txt")

	assert.False(t, store.HasCache(id))

	require.NoError(t, store.PersistCache(ctx, id, testRecord()))
	assert.True(t, store.HasCache(id))

	result := store.GetCache(ctx, id, "utf8")
	assert.False(t, result.IsDeferred())
	rec, err := result.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, testRecord(), rec)
}

func TestRecoveryStore_PersistNilClears(t *testing.T) {
	store := NewRecoveryStore()
	ctx := context.Background()
	id := domain.ResourceID("file:///tmp/a.txt")
	require.NoError(t, store.PersistCache(ctx, id, testRecord()))

	require.NoError(t, store.PersistCache(ctx, id, nil))

	assert.False(t, store.HasCache(id))
	rec, err := store.GetCache(ctx, id, "").Wait(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecoveryStore_RecordsAreCopied(t *testing.T) {
	store := NewRecoveryStore()
	ctx := context.Background()
	id := domain.ResourceID("untitled://1")
	rec := testRecord()
	require.NoError(t, store.PersistCache(ctx, id, rec))

	rec.EditLog[0][0].NewText = "mutated"

	got, err := store.GetCache(ctx, id, "").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.EditLog[0][0].NewText)
}

func TestRecoveryStore_ListCached(t *testing.T) {
	store := NewRecoveryStore()
	ctx := context.Background()
	_ = store.PersistCache(ctx, "untitled://b", testRecord())
	_ = store.PersistCache(ctx, "untitled://a", testRecord())

	ids, err := store.ListCached(ctx)

	require.NoError(t, err)
	assert.Equal(t, []domain.ResourceID{"untitled://a", "untitled://b"}, ids)
}

func TestRecoveryStore_PreferSnapshots(t *testing.T) {
	store := NewRecoveryStore()
	assert.False(t, store.PrefersSnapshot())

	store.PreferSnapshots(true)

	assert.True(t, store.PrefersSnapshot())
}

func TestNoopRecoveryStore(t *testing.T) {
	store := NoopRecoveryStore{}
	ctx := context.Background()

	require.NoError(t, store.PersistCache(ctx, "untitled://1", testRecord()))

	assert.False(t, store.HasCache("untitled://1"))
	rec, err := store.GetCache(ctx, "untitled://1", "").Wait(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
