// Package keys implements the attribute key registry: a stable,
// process-wide mapping from attribute key strings to small integer ids,
// backed by an idempotent upsert against the autocommit pool and cached
// in-process with an LRU.
package keys

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
)

const defaultCacheSize = 100_000

// Querier is the minimal query surface the registry needs, satisfied by
// *pgxpool.Pool in production and by a pgxmock pool in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Registry assigns stable small-integer ids to attribute key strings,
// de-duplicated across all signals.
type Registry struct {
	autocommit Querier

	mu    sync.Mutex
	cache *lru.Cache[string, int64]
}

// New constructs a Registry backed by the autocommit pool.
func New(autocommit Querier) (*Registry, error) {
	cache, err := lru.New[string, int64](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("building attribute key cache: %w", err)
	}
	return &Registry{autocommit: autocommit, cache: cache}, nil
}

// GetOrCreateKeyID returns the stable id for name, inserting a new row
// the first time name is seen. Concurrent callers racing on the same
// name converge on the same id via the table's unique constraint.
func (r *Registry) GetOrCreateKeyID(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	if id, ok := r.cache.Get(name); ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	const stmt = `
		INSERT INTO attribute_keys (key)
		VALUES ($1)
		ON CONFLICT (key) DO UPDATE SET key = EXCLUDED.key
		RETURNING key_id`

	var id int64
	if err := r.autocommit.QueryRow(ctx, stmt, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting attribute key %q: %w", name, err)
	}

	r.mu.Lock()
	r.cache.Add(name, id)
	r.mu.Unlock()

	return id, nil
}

// CacheSize reports the number of cached key→id mappings, for tests and
// the metrics surface.
func (r *Registry) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// ClearCache discards all cached mappings without affecting the database;
// useful for tests that need a clean hit/miss count.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
