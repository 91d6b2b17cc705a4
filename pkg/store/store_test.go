package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/review"
)

// newTestPool starts a disposable Postgres container, runs the embedded
// migrations against it, and returns a ready pool, following this codebase's
// pkg/database/client_test.go newTestClient pattern adapted from Ent's
// Schema.Create to golang-migrate's embedded migrations.
func newTestPool(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	}

	pool, err := NewPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestGraphStore_UpsertNodeAndQuery(t *testing.T) {
	pool := newTestPool(t)
	store := NewGraphStore(pool)
	ctx := context.Background()

	node := adapters.GraphNode{
		ID:         "service:checkout",
		Label:      "Service",
		Properties: map[string]any{"owner": "payments"},
	}
	require.NoError(t, store.UpsertNode(ctx, node))

	// Upsert again with changed properties; should overwrite, not duplicate.
	node.Properties = map[string]any{"owner": "payments-v2"}
	require.NoError(t, store.UpsertNode(ctx, node))

	rows, err := store.Query(ctx, `SELECT id, label FROM graph_nodes WHERE id = @id`, map[string]any{"id": node.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, node.ID, rows[0]["id"])
}

func TestGraphStore_UpsertRelation(t *testing.T) {
	pool := newTestPool(t)
	store := NewGraphStore(pool)
	ctx := context.Background()

	require.NoError(t, store.UpsertNode(ctx, adapters.GraphNode{ID: "a", Label: "Service"}))
	require.NoError(t, store.UpsertNode(ctx, adapters.GraphNode{ID: "b", Label: "Service"}))

	rel := adapters.GraphRelation{FromID: "a", Type: "CALLS", ToID: "b"}
	require.NoError(t, store.UpsertRelation(ctx, rel))
	require.NoError(t, store.UpsertRelation(ctx, rel))

	rows, err := store.Query(ctx, `SELECT from_id FROM graph_relations WHERE from_id = @from`, map[string]any{"from": "a"})
	require.NoError(t, err)
	require.Len(t, rows, 2, "relations are edge-list appends, not deduped")
}

func newTestPlaybook(id string) models.Playbook {
	return models.Playbook{
		ID:             id,
		Title:          "Restart pods on OOMKilled",
		PatternType:    models.CorrelationTemporal,
		ServicePattern: "checkout",
		Status:         models.StatusActive,
		Stats:          models.PlaybookStats{TotalExecutions: 0},
	}
}

func TestPlaybookRepository_CreateGetUpdate(t *testing.T) {
	pool := newTestPool(t)
	repo := NewPlaybookRepository(pool)
	ctx := context.Background()

	p := newTestPlaybook("pb-1")
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.Get(ctx, "pb-1")
	require.NoError(t, err)
	require.Equal(t, p.ServicePattern, got.ServicePattern)

	got.Stats.TotalExecutions = 1
	require.NoError(t, repo.Update(ctx, got, 0))

	reread, err := repo.Get(ctx, "pb-1")
	require.NoError(t, err)
	require.Equal(t, 1, reread.Stats.TotalExecutions)
}

func TestPlaybookRepository_UpdateOptimisticConflict(t *testing.T) {
	pool := newTestPool(t)
	repo := NewPlaybookRepository(pool)
	ctx := context.Background()

	p := newTestPlaybook("pb-2")
	require.NoError(t, repo.Create(ctx, p))

	p.Stats.TotalExecutions = 1
	err := repo.Update(ctx, p, 99)
	require.Error(t, err)
}

func TestPlaybookRepository_FindActiveByKey(t *testing.T) {
	pool := newTestPool(t)
	repo := NewPlaybookRepository(pool)
	ctx := context.Background()

	p := newTestPlaybook("pb-3")
	require.NoError(t, repo.Create(ctx, p))

	found, err := repo.FindActiveByKey(ctx, models.CorrelationTemporal, "checkout")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "pb-3", found[0].ID)
}

func TestReviewRepository_UpsertAndGet(t *testing.T) {
	pool := newTestPool(t)
	repo := NewReviewRepository(pool)
	ctx := context.Background()

	rec := review.Record{
		ReviewRecord: models.ReviewRecord{
			ID:         "rev-1",
			DecisionID: "dec-1",
			State:      models.ReviewPending,
		},
		ThreadTS: "1234.5678",
	}
	require.NoError(t, repo.Upsert(ctx, rec))

	got, found, err := repo.Get(ctx, "dec-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec.ThreadTS, got.ThreadTS)
	require.Equal(t, models.ReviewPending, got.State)

	got.State = models.ReviewApproved
	got.Reviewer = "alice"
	require.NoError(t, repo.Upsert(ctx, got))

	reread, found, err := repo.Get(ctx, "dec-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, models.ReviewApproved, reread.State)
}

func TestReviewRepository_GetMissing(t *testing.T) {
	pool := newTestPool(t)
	repo := NewReviewRepository(pool)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "does-not-exist")
	require.NoError(t, err)
	require.False(t, found)
}
