package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/strandserr"
)

// PlaybookRepository implements pkg/playbook.Repository over Postgres. The
// full Playbook is stored as one JSONB document, with
// pattern_type/service_pattern/status/total_executions denormalised into
// columns for a lookup index and for the compare-and-set in Update.
type PlaybookRepository struct {
	pool *pgxpool.Pool
}

func NewPlaybookRepository(pool *pgxpool.Pool) *PlaybookRepository {
	return &PlaybookRepository{pool: pool}
}

func (r *PlaybookRepository) Get(ctx context.Context, id string) (models.Playbook, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM playbooks WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Playbook{}, strandserr.Newf(strandserr.KindValidationFailed, "store.PlaybookRepository.Get", "playbook %s not found", id)
		}
		return models.Playbook{}, fmt.Errorf("store: get playbook %s: %w", id, err)
	}
	var p models.Playbook
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Playbook{}, fmt.Errorf("store: unmarshal playbook %s: %w", id, err)
	}
	return p, nil
}

func (r *PlaybookRepository) Create(ctx context.Context, p models.Playbook) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal playbook %s: %w", p.ID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO playbooks (id, pattern_type, service_pattern, status, total_executions, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, string(p.PatternType), p.ServicePattern, string(p.Status), p.Stats.TotalExecutions, raw)
	if err != nil {
		return fmt.Errorf("store: create playbook %s: %w", p.ID, err)
	}
	return nil
}

// Update performs an optimistic compare-and-set: the
// write only lands if total_executions still equals expectedTotalExecutions,
// so two concurrent executions never silently clobber each other's stats.
func (r *PlaybookRepository) Update(ctx context.Context, p models.Playbook, expectedTotalExecutions int) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal playbook %s: %w", p.ID, err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE playbooks
		SET data = $1, pattern_type = $2, service_pattern = $3, status = $4, total_executions = $5
		WHERE id = $6 AND total_executions = $7
	`, raw, string(p.PatternType), p.ServicePattern, string(p.Status), p.Stats.TotalExecutions, p.ID, expectedTotalExecutions)
	if err != nil {
		return fmt.Errorf("store: update playbook %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return strandserr.Newf(strandserr.KindOptimisticConflict, "store.PlaybookRepository.Update", "playbook %s total_executions changed since read", p.ID)
	}
	return nil
}

// List returns every playbook, newest-updated first, for the operator
// console's GET /playbooks and the CLI's `playbook list`.
func (r *PlaybookRepository) List(ctx context.Context) ([]models.Playbook, error) {
	rows, err := r.pool.Query(ctx, `SELECT data FROM playbooks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list playbooks: %w", err)
	}
	defer rows.Close()

	var out []models.Playbook
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan playbook row: %w", err)
		}
		var p models.Playbook
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("store: unmarshal playbook row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate playbook rows: %w", err)
	}
	return out, nil
}

func (r *PlaybookRepository) FindActiveByKey(ctx context.Context, patternType models.CorrelationType, servicePattern string) ([]models.Playbook, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT data FROM playbooks
		WHERE pattern_type = $1 AND service_pattern = $2 AND status = $3
	`, string(patternType), servicePattern, string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("store: find active playbooks: %w", err)
	}
	defer rows.Close()

	var out []models.Playbook
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan playbook row: %w", err)
		}
		var p models.Playbook
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("store: unmarshal playbook row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate playbook rows: %w", err)
	}
	return out, nil
}
