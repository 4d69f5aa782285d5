// Package readiness implements the background check that gates whether
// the receiver accepts traffic: the schema must exist, the migration
// marker must not be dirty, and its version must equal
// ExpectedSchemaVersion.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
)

// requiredTables are probed every poll; their absence means the schema
// has not been migrated yet.
var requiredTables = []string{
	"attribute_keys",
	"otel_resources_dim",
	"otel_scopes_dim",
	"otel_logs_fact",
	"otel_spans_fact",
	"otel_metrics_dim",
}

// ExpectedSchemaVersion is the golang-migrate version this binary was
// built against — the highest migrations/NNNNNN_*.sql prefix. Bump it
// whenever a migration is added, so a binary running against a schema
// that hasn't caught up (or has moved past it) fails readiness instead
// of serving traffic against a shape it doesn't know.
const ExpectedSchemaVersion = 6

// State is the supervisor's current opinion, read by the gRPC health
// service and the receiver's interceptor.
type State int32

const (
	// StateUnready means the schema is missing, unreachable, dirty, or at
	// a version other than ExpectedSchemaVersion.
	StateUnready State = iota
	// StateReady means the schema is present, clean, and at
	// ExpectedSchemaVersion.
	StateReady
)

// Querier is the minimal query surface the readiness check needs,
// satisfied by *pgxpool.Pool in production and by a pgxmock pool in
// tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Supervisor polls the database on an interval and exposes the current
// readiness state without blocking callers on a database round trip.
type Supervisor struct {
	pool            Querier
	migrationsTable string
	interval        time.Duration
	logger          *slog.Logger

	state atomic.Int32
}

// New constructs a Supervisor. It starts unready; call Run to begin polling.
func New(pool Querier, migrationsTable string, interval time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		pool:            pool,
		migrationsTable: migrationsTable,
		interval:        interval,
		logger:          logger,
	}
}

// Ready reports the current readiness opinion. Always liveness-safe: it
// never blocks and never returns an error, since liveness is independent
// of this state per §4.8.
func (s *Supervisor) Ready() bool {
	return State(s.state.Load()) == StateReady
}

// Run polls until ctx is cancelled, transitioning the exposed state only
// on change so callers logging state transitions don't spam on every tick.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Supervisor) poll(ctx context.Context) {
	ready, reason := s.check(ctx)

	newState := StateUnready
	if ready {
		newState = StateReady
	}

	if State(s.state.Swap(int32(newState))) != newState {
		if ready {
			s.logger.Info("schema ready, accepting traffic")
		} else {
			s.logger.Warn("schema not ready, rejecting traffic", "reason", reason)
		}
	}
}

func (s *Supervisor) check(ctx context.Context) (ready bool, reason string) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	for _, table := range requiredTables {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists)
		if err != nil {
			return false, "querying table existence: " + err.Error()
		}
		if !exists {
			return false, "missing table " + table
		}
	}

	var version int64
	var dirty bool
	err := s.pool.QueryRow(ctx, `SELECT version, dirty FROM `+s.migrationsTable+` LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return false, "querying migration marker: " + err.Error()
	}
	if dirty {
		return false, "migration marker is dirty"
	}
	if version != ExpectedSchemaVersion {
		return false, fmt.Sprintf("schema version %d does not match expected version %d", version, ExpectedSchemaVersion)
	}

	return true, ""
}
