package dimensions

import (
	"context"
	"fmt"
	"time"
)

// MetricDescriptor is the identity-bearing subset of an OTLP metric used
// to deduplicate metrics_dim rows. Description is carried separately
// since it may vary across reports of the same identity without forcing
// a new dimension row.
type MetricDescriptor struct {
	Name        string
	TypeID      int16
	Unit        string
	Temporality int16
	Monotonic   bool
	Description string
}

// MetricManager deduplicates metric descriptors, mirroring Manager's
// resource/scope flow but keyed on the name+type+unit+temporality+
// monotonic identity hash rather than an attribute set.
type MetricManager struct {
	autocommit Querier
	cfg        Config
	metrics    *ttlCache
}

// NewMetricManager constructs a MetricManager over the autocommit pool.
// now is injectable for deterministic tests; nil defaults to time.Now.
func NewMetricManager(autocommit Querier, cfg Config, now func() time.Time) *MetricManager {
	if now == nil {
		now = time.Now
	}
	return &MetricManager{
		autocommit: autocommit,
		cfg:        cfg,
		metrics:    newTTLCache(defaultCacheSize, cfg.CacheTTL, now),
	}
}

// GetOrCreateMetric upserts the metrics_dim row for d, returning its id
// and identity hash. description is allowed to vary across calls with
// the same identity hash without creating a new row; the stored
// description is left as whatever was present on first insert, matching
// the non-overwriting policy used for resource's promoted columns.
func (m *MetricManager) GetOrCreateMetric(ctx context.Context, d MetricDescriptor) (id int64, hash string, err error) {
	hash = MetricHash(d.Name, d.TypeID, d.Temporality, d.Unit, d.Monotonic)
	identityHash := MetricIdentityHash(d.Name, d.TypeID, d.Unit)

	if cached, fresh, found := m.metrics.get(hash); found && fresh {
		return cached, hash, nil
	}

	const stmt = `
		INSERT INTO otel_metrics_dim (
			metric_hash, metric_identity_hash, name, type_id, unit,
			temporality_id, monotonic, description, first_seen, last_seen
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		ON CONFLICT (metric_hash) DO UPDATE SET
			last_seen = CASE
				WHEN otel_metrics_dim.last_seen < now() - $9::interval THEN now()
				ELSE otel_metrics_dim.last_seen
			END
		RETURNING metric_id`

	if err := m.autocommit.QueryRow(ctx, stmt,
		hash, identityHash, d.Name, d.TypeID, nullableStr(d.Unit),
		d.Temporality, d.Monotonic, nullableStr(d.Description), pgInterval(m.cfg.LastSeenThreshold),
	).Scan(&id); err != nil {
		return 0, hash, fmt.Errorf("upserting metric dimension: %w", err)
	}

	m.metrics.put(hash, id)
	return id, hash, nil
}

// CacheSize exposes cache cardinality for tests and the metrics surface.
func (m *MetricManager) CacheSize() int { return m.metrics.size() }

// ClearCache discards the cache without touching the database.
func (m *MetricManager) ClearCache() { m.metrics.purge() }
