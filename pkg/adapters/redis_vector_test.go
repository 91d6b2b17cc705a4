package adapters

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisVectorStore(t *testing.T) *RedisVectorStore {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisVectorStore(client, nil)
}

func TestRedisVectorStore_UpsertThenSearchRanksByCosine(t *testing.T) {
	store := newTestRedisVectorStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "exact", []float64{1, 0, 0}, map[string]any{"title": "exact match"}))
	require.NoError(t, store.Upsert(ctx, "orthogonal", []float64{0, 1, 0}, map[string]any{"title": "unrelated"}))
	require.NoError(t, store.Upsert(ctx, "near", []float64{0.9, 0.1, 0}, map[string]any{"title": "close"}))

	matches, err := store.Search(ctx, []float64{1, 0, 0}, 2, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "exact", matches[0].ID)
	require.Equal(t, "near", matches[1].ID)
	require.Equal(t, "close", matches[1].Payload["title"])
}

func TestRedisVectorStore_SearchEmptyStoreReturnsNoMatches(t *testing.T) {
	store := newTestRedisVectorStore(t)
	matches, err := store.Search(context.Background(), []float64{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestRedisVectorStore_SearchRespectsMinScore(t *testing.T) {
	store := newTestRedisVectorStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "orthogonal", []float64{0, 1}, nil))

	matches, err := store.Search(ctx, []float64{1, 0}, 10, 0.1)
	require.NoError(t, err)
	require.Empty(t, matches)
}
