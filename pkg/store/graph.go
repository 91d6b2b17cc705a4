package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strands-sre/strands/pkg/adapters"
)

// GraphStore implements adapters.GraphStore over Postgres, modelling nodes
// and relations as JSONB-property rows.
type GraphStore struct {
	pool *pgxpool.Pool
}

// NewGraphStore wraps an existing pool. Call RunMigrations (or NewPool,
// which does so automatically) before using it.
func NewGraphStore(pool *pgxpool.Pool) *GraphStore {
	return &GraphStore{pool: pool}
}

func (g *GraphStore) UpsertNode(ctx context.Context, node adapters.GraphNode) error {
	props, err := json.Marshal(node.Properties)
	if err != nil {
		return fmt.Errorf("store: marshal node properties: %w", err)
	}
	_, err = g.pool.Exec(ctx, `
		INSERT INTO graph_nodes (id, label, properties)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, properties = EXCLUDED.properties
	`, node.ID, node.Label, props)
	if err != nil {
		return fmt.Errorf("store: upsert node %s: %w", node.ID, err)
	}
	return nil
}

func (g *GraphStore) UpsertRelation(ctx context.Context, rel adapters.GraphRelation) error {
	props, err := json.Marshal(rel.Properties)
	if err != nil {
		return fmt.Errorf("store: marshal relation properties: %w", err)
	}
	_, err = g.pool.Exec(ctx, `
		INSERT INTO graph_relations (from_id, type, to_id, properties)
		VALUES ($1, $2, $3, $4)
	`, rel.FromID, rel.Type, rel.ToID, props)
	if err != nil {
		return fmt.Errorf("store: insert relation %s-%s->%s: %w", rel.FromID, rel.Type, rel.ToID, err)
	}
	return nil
}

// Query runs a caller-supplied parameterised query and decodes each row
// into a map keyed by column name. params uses pgx's named-argument
// rewriting (@name placeholders), matching the adapters.GraphStore
// contract's mapping-of-parameters shape.
func (g *GraphStore) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := g.pool.Query(ctx, query, pgx.NamedArgs(params))
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rows: %w", err)
	}
	return out, nil
}
