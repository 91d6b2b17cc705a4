package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/review"
)

// ReviewRepository implements pkg/review.Repository over Postgres, keyed by
// decision ID with the Slack thread timestamp kept as its own column so a
// cached re-read doesn't need to unmarshal the JSONB blob. The originating
// decision and its linked playbook ID travel inside the JSONB blob itself
// so Approve/Reject can resolve a bare decision ID back into everything
// review.Service needs without the caller re-submitting either.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// reviewBlob is the JSONB-encoded payload for a review_records row.
type reviewBlob struct {
	Review     models.ReviewRecord      `json:"review"`
	Decision   models.DecisionCandidate `json:"decision"`
	PlaybookID string                   `json:"playbook_id,omitempty"`
}

func (r *ReviewRepository) Get(ctx context.Context, decisionID string) (review.Record, bool, error) {
	var threadTS string
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT thread_ts, data FROM review_records WHERE decision_id = $1
	`, decisionID).Scan(&threadTS, &raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return review.Record{}, false, nil
		}
		return review.Record{}, false, fmt.Errorf("store: get review %s: %w", decisionID, err)
	}
	var blob reviewBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return review.Record{}, false, fmt.Errorf("store: unmarshal review %s: %w", decisionID, err)
	}
	return review.Record{
		ReviewRecord: blob.Review,
		ThreadTS:     threadTS,
		Decision:     blob.Decision,
		PlaybookID:   blob.PlaybookID,
	}, true, nil
}

func (r *ReviewRepository) Upsert(ctx context.Context, rec review.Record) error {
	blob := reviewBlob{Review: rec.ReviewRecord, Decision: rec.Decision, PlaybookID: rec.PlaybookID}
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("store: marshal review %s: %w", rec.DecisionID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO review_records (decision_id, thread_ts, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (decision_id) DO UPDATE SET thread_ts = EXCLUDED.thread_ts, data = EXCLUDED.data
	`, rec.DecisionID, rec.ThreadTS, raw)
	if err != nil {
		return fmt.Errorf("store: upsert review %s: %w", rec.DecisionID, err)
	}
	return nil
}
