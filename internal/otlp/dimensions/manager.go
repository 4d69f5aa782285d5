package dimensions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
)

const defaultCacheSize = 50_000

// Querier is the minimal query surface the dimension managers need,
// satisfied by *pgxpool.Pool in production and by a pgxmock pool in
// tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Config holds the tunables spec.md leaves configurable: the staleness
// threshold below which a last_seen write is skipped, and the TTL after
// which a cached hash→id mapping is re-validated against the database.
type Config struct {
	LastSeenThreshold time.Duration
	CacheTTL          time.Duration
}

// DefaultConfig mirrors the source implementation's defaults (5 minute
// last_seen threshold, 30 minute cache TTL).
func DefaultConfig() Config {
	return Config{
		LastSeenThreshold: 5 * time.Minute,
		CacheTTL:          30 * time.Minute,
	}
}

// Manager deduplicates resource and scope identities against the
// autocommit pool, producing a stable resource_id/scope_id per batch.
type Manager struct {
	autocommit Querier
	cfg        Config
	now        func() time.Time

	resources *ttlCache
	scopes    *ttlCache
}

// New constructs a Manager. now is injectable for deterministic tests; a
// nil value defaults to time.Now.
func New(autocommit Querier, cfg Config, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		autocommit: autocommit,
		cfg:        cfg,
		now:        now,
		resources:  newTTLCache(defaultCacheSize, cfg.CacheTTL, now),
		scopes:     newTTLCache(defaultCacheSize, cfg.CacheTTL, now),
	}
}

// GetOrCreateResource upserts the resource dimension row for attrs,
// returning its id and the canonical hash. service.name/service.namespace
// are extracted and promoted on first insert only; later collisions never
// overwrite them.
func (m *Manager) GetOrCreateResource(ctx context.Context, attrs []attrvalue.KeyValue) (id int64, hash string, err error) {
	hash = ResourceHash(attrs)

	if cached, fresh, found := m.resources.get(hash); found && fresh {
		return cached, hash, nil
	}

	serviceName, serviceNamespace := extractService(attrs)

	const stmt = `
		INSERT INTO otel_resources_dim (resource_hash, service_name, service_namespace, first_seen, last_seen)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (resource_hash) DO UPDATE SET
			last_seen = CASE
				WHEN otel_resources_dim.last_seen < now() - $4::interval THEN now()
				ELSE otel_resources_dim.last_seen
			END
		RETURNING resource_id`

	if err := m.autocommit.QueryRow(ctx, stmt, hash, nullableStr(serviceName), nullableStr(serviceNamespace), pgInterval(m.cfg.LastSeenThreshold)).Scan(&id); err != nil {
		return 0, hash, fmt.Errorf("upserting resource dimension: %w", err)
	}

	m.resources.put(hash, id)
	return id, hash, nil
}

// GetOrCreateScope upserts the scope dimension row for (name, version,
// schemaURL), analogous to GetOrCreateResource but without promoted
// columns — scope attributes flow through the typed attribute tables.
func (m *Manager) GetOrCreateScope(ctx context.Context, name, version, schemaURL string) (id int64, hash string, err error) {
	hash = ScopeHash(name, version, schemaURL)

	if cached, fresh, found := m.scopes.get(hash); found && fresh {
		return cached, hash, nil
	}

	const stmt = `
		INSERT INTO otel_scopes_dim (scope_hash, name, version, schema_url, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (scope_hash) DO UPDATE SET
			last_seen = CASE
				WHEN otel_scopes_dim.last_seen < now() - $5::interval THEN now()
				ELSE otel_scopes_dim.last_seen
			END
		RETURNING scope_id`

	if err := m.autocommit.QueryRow(ctx, stmt, hash, name, nullableStr(version), nullableStr(schemaURL), pgInterval(m.cfg.LastSeenThreshold)).Scan(&id); err != nil {
		return 0, hash, fmt.Errorf("upserting scope dimension: %w", err)
	}

	m.scopes.put(hash, id)
	return id, hash, nil
}

// ResourceCacheSize and ScopeCacheSize expose cache cardinality for tests
// and the metrics surface.
func (m *Manager) ResourceCacheSize() int { return m.resources.size() }
func (m *Manager) ScopeCacheSize() int    { return m.scopes.size() }

// ClearCache discards both caches without touching the database.
func (m *Manager) ClearCache() {
	m.resources.purge()
	m.scopes.purge()
}

func extractService(attrs []attrvalue.KeyValue) (name, namespace string) {
	for _, kv := range attrs {
		switch kv.Key {
		case "service.name":
			if kv.Value.Kind == attrvalue.KindString {
				name = kv.Value.Str
			}
		case "service.namespace":
			if kv.Value.Kind == attrvalue.KindString {
				namespace = kv.Value.Str
			}
		}
	}
	return name, namespace
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// pgInterval renders a Go duration as a string PostgreSQL's interval
// input parser accepts ("300 seconds"), since time.Duration.String()
// ("5m0s") is not valid interval syntax.
func pgInterval(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
