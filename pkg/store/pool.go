// Package store is C8/C2's Postgres-backed persistence adapter: a
// pgx/v5 connection pool fronting the GraphStore contract
// (pkg/adapters.GraphStore), pkg/playbook.Repository, and
// pkg/review.Repository, built directly on pgx/v5 rather than a
// codegen-dependent ORM client that can't be produced in this environment.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config mirrors this codebase's database.Config connection-pool shape
// (pkg/database/client.go), minus the Ent-specific driver wiring.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// Health pings the pool, following this codebase's database.Health shape (a
// bounded liveness probe for the /health endpoint, not a query against any
// application table).
func Health(ctx context.Context, pool *pgxpool.Pool) error {
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("store: health ping: %w", err)
	}
	return nil
}

// NewPool opens a pgx connection pool and applies any pending migrations
// embedded in the binary: migrations auto-apply on startup, before the
// pool is handed back to the caller.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("store: parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := RunMigrations(cfg); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
