// Package database constructs the two PostgreSQL connection pools the
// ingestion core runs on: an autocommit pool for dimension upserts and a
// transactional pool for per-batch fact transactions.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/config"
)

// Pools bundles both connections required by the storage layer.
type Pools struct {
	Autocommit    *pgxpool.Pool
	Transactional *pgxpool.Pool
}

// NewPools opens both pools against cfg.URL, sized independently so a
// burst of fact transactions never starves dimension upserts (or vice
// versa) — the split the source's §5 concurrency model requires.
func NewPools(ctx context.Context, cfg config.DatabaseConfig) (*Pools, error) {
	autocommit, err := newPool(ctx, cfg.URL, cfg.AutocommitPoolSize)
	if err != nil {
		return nil, fmt.Errorf("opening autocommit pool: %w", err)
	}

	transactional, err := newPool(ctx, cfg.URL, cfg.TransactionalPoolSize)
	if err != nil {
		autocommit.Close()
		return nil, fmt.Errorf("opening transactional pool: %w", err)
	}

	return &Pools{Autocommit: autocommit, Transactional: transactional}, nil
}

func newPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Close releases both pools. Safe to call multiple times.
func (p *Pools) Close() {
	if p.Autocommit != nil {
		p.Autocommit.Close()
	}
	if p.Transactional != nil {
		p.Transactional.Close()
	}
}
