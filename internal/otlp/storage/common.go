// Package storage implements the three signal storages (logs, traces,
// metrics), each driving the canonical per-batch flow: dimension upsert
// on the autocommit pool, then one fact transaction per batch on the
// transactional pool, then attribute routing for every fact row.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/dimensions"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/ingesterrors"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/keys"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/metrics"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/router"
)

// Signal names a signal storage orchestrates; used for logging, metrics
// labels and error tagging.
type Signal string

const (
	SignalLogs    Signal = "logs"
	SignalTraces  Signal = "spans"
	SignalMetrics Signal = "metrics"
)

// Outcome summarizes one Store call for the caller (the receiver) to
// turn into a response and a log line.
type Outcome struct {
	RecordsReceived int
	RecordsStored   int
	RecordsDropped  int
}

// Beginner is the minimal transaction-starting surface RunFactTransaction
// needs, satisfied by *pgxpool.Pool in production and by a pgxmock pool in
// tests.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Orchestrator is the shared machinery every signal storage is built on:
// access to both pools, the dimension manager, the key registry, the
// attribute router, and the ambient logger/metrics. It has no Store
// method of its own — each signal storage supplies its own per-record
// logic and calls RunFactTransaction to get the shared transaction,
// commit/rollback, and error-classification behavior.
type Orchestrator struct {
	Autocommit    router.DB
	Transactional Beginner
	Dims          *dimensions.Manager
	Keys          *keys.Registry
	Router        *router.Router
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// RunFactTransaction opens one transaction on the transactional pool,
// invokes fn with it, and commits on success or rolls back on error or
// context cancellation. Dimension work performed before this call is
// left in place regardless of outcome, since it is idempotent.
func (o *Orchestrator) RunFactTransaction(ctx context.Context, signal Signal, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := o.Transactional.Begin(ctx)
	if err != nil {
		return ingesterrors.New(ingesterrors.BatchTransient, string(signal), "beginning fact transaction", err)
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return classify(signal, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(signal, err)
	}
	return nil
}

// classify turns a raw pgx/context error into the ingestion taxonomy.
func classify(signal Signal, err error) error {
	if ie, ok := ingesterrors.As(err); ok {
		return ie
	}
	if errors.Is(err, context.Canceled) {
		return ingesterrors.New(ingesterrors.Cancelled, string(signal), "context cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ingesterrors.New(ingesterrors.Cancelled, string(signal), "deadline exceeded", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "23": // integrity constraint violation
			return ingesterrors.New(ingesterrors.BatchPermanent, string(signal), "constraint violation: "+pgErr.Message, err)
		case "08", "53", "57": // connection exception, resource exhaustion, operator intervention
			return ingesterrors.New(ingesterrors.BatchTransient, string(signal), "transient database error", err)
		}
	}
	return ingesterrors.New(ingesterrors.BatchTransient, string(signal), "unclassified database error", err)
}

// routeAndStoreOther runs the attribute router for one owner row and, if
// any attributes landed in the catch-all, upserts them into the owner
// kind's *_attrs_other table. otherTable is empty for owner kinds that
// have no catch-all table (none currently), in which case the catch-all
// is silently discarded — callers should always pass a real table name.
func routeAndStoreOther(ctx context.Context, db router.DB, rtr *router.Router, owner router.Owner, ownerID int64, attrs []attrvalue.KeyValue, otherTable string) error {
	result, err := rtr.Route(ctx, db, owner, ownerID, attrs)
	if err != nil {
		return err
	}
	if len(result.Other) == 0 || otherTable == "" {
		return nil
	}

	otherJSON, err := json.Marshal(result.Other)
	if err != nil {
		return err
	}

	stmt := `INSERT INTO ` + otherTable + ` (owner_id, attributes) VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE SET attributes = EXCLUDED.attributes`
	_, err = db.Exec(ctx, stmt, ownerID, otherJSON)
	return err
}
