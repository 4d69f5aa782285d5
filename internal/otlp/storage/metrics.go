package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/dimensions"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/ingesterrors"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/router"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/timestamp"
)

// QuantileValue is one (quantile, value) pair of a summary data point.
type QuantileValue struct {
	Quantile float64
	Value    float64
}

// DataPointCommon holds the fields every data point shape carries.
type DataPointCommon struct {
	StartTimeUnixNano      int64
	TimeUnixNano           int64
	Attributes             []attrvalue.KeyValue
	Flags                  uint32
	Exemplars              interface{} // opaque; marshaled as-is to JSON
}

// NumberDataPoint is a gauge or sum data point; exactly one of ValueInt
// or ValueDouble is set, matching the OTLP oneof.
type NumberDataPoint struct {
	DataPointCommon
	ValueInt    *int64
	ValueDouble *float64
}

// HistogramDataPoint is one bucketed histogram observation.
type HistogramDataPoint struct {
	DataPointCommon
	Count          uint64
	Sum            *float64
	Min            *float64
	Max            *float64
	BucketCounts   []uint64
	ExplicitBounds []float64
}

// ExponentialHistogramDataPoint is one base-2 exponential histogram
// observation.
type ExponentialHistogramDataPoint struct {
	DataPointCommon
	Count                uint64
	Sum                  *float64
	Min                  *float64
	Max                  *float64
	Scale                int32
	ZeroCount            uint64
	PositiveOffset       int32
	PositiveBucketCounts []uint64
	NegativeOffset       int32
	NegativeBucketCounts []uint64
}

// SummaryDataPoint is a legacy client-side quantile summary.
type SummaryDataPoint struct {
	DataPointCommon
	Count     uint64
	Sum       float64
	Quantiles []QuantileValue
}

// Metric is the neutral representation of one OTLP metric, carrying
// exactly one of the four data-point slices depending on its shape.
type Metric struct {
	Name        string
	Description string
	Unit        string
	Type        string // wire shape name: GAUGE, SUM, HISTOGRAM, EXPONENTIAL_HISTOGRAM, SUMMARY
	Temporality string // wire enum name, e.g. AGGREGATION_TEMPORALITY_CUMULATIVE
	Monotonic   bool

	NumberDataPoints               []NumberDataPoint
	HistogramDataPoints            []HistogramDataPoint
	ExponentialHistogramDataPoints []ExponentialHistogramDataPoint
	SummaryDataPoints              []SummaryDataPoint
}

// ScopeMetrics groups metrics under one instrumentation scope.
type ScopeMetrics struct {
	ScopeName       string
	ScopeVersion    string
	ScopeSchemaURL  string
	ScopeAttributes []attrvalue.KeyValue
	Metrics         []Metric
}

// ResourceMetrics groups scope metrics under one resource.
type ResourceMetrics struct {
	ResourceAttributes             []attrvalue.KeyValue
	ResourceDroppedAttributesCount uint32
	ScopeMetrics                   []ScopeMetrics
}

// metricTypeIDFor maps a metric's wire shape name to the metric_types
// reference table id, independent of which data-point slice is populated.
var metricTypeIDFor = map[string]int16{
	"GAUGE":                 MetricTypeGauge,
	"SUM":                   MetricTypeSum,
	"HISTOGRAM":             MetricTypeHistogram,
	"EXPONENTIAL_HISTOGRAM": MetricTypeExpHistogram,
	"SUMMARY":               MetricTypeSummary,
}

// MetricsStorage orchestrates the full metrics ingestion flow. It is a
// full, non-stub implementation symmetric with LogsStorage/TracesStorage.
type MetricsStorage struct {
	*Orchestrator
	Metrics *dimensions.MetricManager
}

// NewMetricsStorage constructs a MetricsStorage over the shared
// orchestrator and its own metric dimension manager.
func NewMetricsStorage(o *Orchestrator, metricDims *dimensions.MetricManager) *MetricsStorage {
	return &MetricsStorage{Orchestrator: o, Metrics: metricDims}
}

// Store drives one ingest batch through dimension upsert (resource,
// scope, and per-metric identity), a single fact transaction for the
// whole batch, and attribute routing for every data point.
func (s *MetricsStorage) Store(ctx context.Context, batch []ResourceMetrics) (Outcome, error) {
	var out Outcome
	var inserts []func(ctx context.Context, tx pgx.Tx) error

	for _, rm := range batch {
		resourceID, _, err := s.Dims.GetOrCreateResource(ctx, rm.ResourceAttributes)
		if err != nil {
			return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalMetrics), "upserting resource", err)
		}
		if err := routeAndStoreOther(ctx, s.Autocommit, s.Router, router.OwnerResource, resourceID, rm.ResourceAttributes, "otel_resource_attrs_other"); err != nil {
			return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalMetrics), "routing resource attributes", err)
		}

		for _, sm := range rm.ScopeMetrics {
			var scopeID *int64
			if sm.ScopeName != "" {
				id, _, err := s.Dims.GetOrCreateScope(ctx, sm.ScopeName, sm.ScopeVersion, sm.ScopeSchemaURL)
				if err != nil {
					return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalMetrics), "upserting scope", err)
				}
				scopeID = &id
				if err := routeAndStoreOther(ctx, s.Autocommit, s.Router, router.OwnerScope, id, sm.ScopeAttributes, "otel_scope_attrs_other"); err != nil {
					return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalMetrics), "routing scope attributes", err)
				}
			}

			out.RecordsReceived += countDataPoints(sm.Metrics)
			if len(sm.Metrics) == 0 {
				continue
			}

			inserts = append(inserts, func(ctx context.Context, tx pgx.Tx) error {
				stored, dropped, err := s.insertMetrics(ctx, tx, resourceID, scopeID, sm.Metrics)
				out.RecordsStored += stored
				out.RecordsDropped += dropped
				return err
			})
		}
	}

	if len(inserts) == 0 {
		return out, nil
	}
	err := s.RunFactTransaction(ctx, SignalMetrics, func(ctx context.Context, tx pgx.Tx) error {
		for _, insert := range inserts {
			if err := insert(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func countDataPoints(metrics []Metric) int {
	n := 0
	for _, m := range metrics {
		n += len(m.NumberDataPoints) + len(m.HistogramDataPoints) + len(m.ExponentialHistogramDataPoints) + len(m.SummaryDataPoints)
	}
	return n
}

func (s *MetricsStorage) insertMetrics(ctx context.Context, tx pgx.Tx, resourceID int64, scopeID *int64, metrics []Metric) (stored, dropped int, err error) {
	for _, m := range metrics {
		typeID, ok := metricTypeIDFor[m.Type]
		if !ok {
			dropped += countDataPoints([]Metric{m})
			continue
		}

		metricID, _, err := s.Metrics.GetOrCreateMetric(ctx, dimensions.MetricDescriptor{
			Name:        m.Name,
			TypeID:      typeID,
			Unit:        m.Unit,
			Temporality: TemporalityID(m.Temporality),
			Monotonic:   m.Monotonic,
			Description: m.Description,
		})
		if err != nil {
			return stored, dropped, err
		}

		for _, dp := range m.NumberDataPoints {
			n, err := s.insertNumberDataPoint(ctx, tx, metricID, resourceID, scopeID, dp)
			stored += n
			if n == 0 {
				dropped++
			}
			if err != nil {
				return stored, dropped, err
			}
		}
		for _, dp := range m.HistogramDataPoints {
			n, err := s.insertHistogramDataPoint(ctx, tx, metricID, resourceID, scopeID, dp)
			stored += n
			if err != nil {
				return stored, dropped, err
			}
		}
		for _, dp := range m.ExponentialHistogramDataPoints {
			n, err := s.insertExponentialHistogramDataPoint(ctx, tx, metricID, resourceID, scopeID, dp)
			stored += n
			if err != nil {
				return stored, dropped, err
			}
		}
		for _, dp := range m.SummaryDataPoints {
			n, err := s.insertSummaryDataPoint(ctx, tx, metricID, resourceID, scopeID, dp)
			stored += n
			if err != nil {
				return stored, dropped, err
			}
		}
	}
	return stored, dropped, nil
}

func (s *MetricsStorage) insertNumberDataPoint(ctx context.Context, tx pgx.Tx, metricID, resourceID int64, scopeID *int64, dp NumberDataPoint) (int, error) {
	if dp.ValueInt == nil && dp.ValueDouble == nil {
		return 0, nil // RecordInvalid: neither numeric field present, drop silently (caller already counted received)
	}

	const stmt = `
		INSERT INTO otel_metrics_data_points_number (
			metric_id, resource_id, scope_id, start_time, start_time_nanos_fraction,
			time, time_nanos_fraction, value_int, value_double, exemplars, flags
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING datapoint_id`

	startTS, startFrac := timestamp.Split(dp.StartTimeUnixNano)
	ts, frac := timestamp.Split(dp.TimeUnixNano)

	exemplarsJSON, err := marshalExemplars(dp.Exemplars)
	if err != nil {
		return 0, err
	}

	var dpID int64
	if err := tx.QueryRow(ctx, stmt,
		metricID, resourceID, scopeID, startTS, startFrac, ts, frac,
		dp.ValueInt, dp.ValueDouble, exemplarsJSON, dp.Flags,
	).Scan(&dpID); err != nil {
		return 0, err
	}

	if err := routeAndStoreOther(ctx, tx, s.Router, router.OwnerMetricDataPoint, dpID, dp.Attributes, "otel_metric_datapoint_attrs_other"); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *MetricsStorage) insertHistogramDataPoint(ctx context.Context, tx pgx.Tx, metricID, resourceID int64, scopeID *int64, dp HistogramDataPoint) (int, error) {
	const stmt = `
		INSERT INTO otel_metrics_data_points_histogram (
			metric_id, resource_id, scope_id, start_time, start_time_nanos_fraction,
			time, time_nanos_fraction, count, sum, min, max,
			bucket_counts, explicit_bounds, exemplars, flags
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING datapoint_id`

	startTS, startFrac := timestamp.Split(dp.StartTimeUnixNano)
	ts, frac := timestamp.Split(dp.TimeUnixNano)

	exemplarsJSON, err := marshalExemplars(dp.Exemplars)
	if err != nil {
		return 0, err
	}

	var dpID int64
	if err := tx.QueryRow(ctx, stmt,
		metricID, resourceID, scopeID, startTS, startFrac, ts, frac,
		dp.Count, dp.Sum, dp.Min, dp.Max,
		dp.BucketCounts, dp.ExplicitBounds, exemplarsJSON, dp.Flags,
	).Scan(&dpID); err != nil {
		return 0, err
	}

	if err := routeAndStoreOther(ctx, tx, s.Router, router.OwnerMetricDataPoint, dpID, dp.Attributes, "otel_metric_datapoint_attrs_other"); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *MetricsStorage) insertExponentialHistogramDataPoint(ctx context.Context, tx pgx.Tx, metricID, resourceID int64, scopeID *int64, dp ExponentialHistogramDataPoint) (int, error) {
	const stmt = `
		INSERT INTO otel_metrics_data_points_exponential_histogram (
			metric_id, resource_id, scope_id, start_time, start_time_nanos_fraction,
			time, time_nanos_fraction, count, sum, min, max, scale, zero_count,
			positive_offset, positive_bucket_counts, negative_offset, negative_bucket_counts,
			exemplars, flags
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING datapoint_id`

	startTS, startFrac := timestamp.Split(dp.StartTimeUnixNano)
	ts, frac := timestamp.Split(dp.TimeUnixNano)

	exemplarsJSON, err := marshalExemplars(dp.Exemplars)
	if err != nil {
		return 0, err
	}

	var dpID int64
	if err := tx.QueryRow(ctx, stmt,
		metricID, resourceID, scopeID, startTS, startFrac, ts, frac,
		dp.Count, dp.Sum, dp.Min, dp.Max, dp.Scale, dp.ZeroCount,
		dp.PositiveOffset, dp.PositiveBucketCounts, dp.NegativeOffset, dp.NegativeBucketCounts,
		exemplarsJSON, dp.Flags,
	).Scan(&dpID); err != nil {
		return 0, err
	}

	if err := routeAndStoreOther(ctx, tx, s.Router, router.OwnerMetricDataPoint, dpID, dp.Attributes, "otel_metric_datapoint_attrs_other"); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *MetricsStorage) insertSummaryDataPoint(ctx context.Context, tx pgx.Tx, metricID, resourceID int64, scopeID *int64, dp SummaryDataPoint) (int, error) {
	const stmt = `
		INSERT INTO otel_metrics_data_points_summary (
			metric_id, resource_id, scope_id, start_time, start_time_nanos_fraction,
			time, time_nanos_fraction, count, sum, quantile_values, flags
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING datapoint_id`

	startTS, startFrac := timestamp.Split(dp.StartTimeUnixNano)
	ts, frac := timestamp.Split(dp.TimeUnixNano)

	quantilesJSON, err := json.Marshal(dp.Quantiles)
	if err != nil {
		return 0, err
	}

	var dpID int64
	if err := tx.QueryRow(ctx, stmt,
		metricID, resourceID, scopeID, startTS, startFrac, ts, frac,
		dp.Count, dp.Sum, quantilesJSON, dp.Flags,
	).Scan(&dpID); err != nil {
		return 0, err
	}

	if err := routeAndStoreOther(ctx, tx, s.Router, router.OwnerMetricDataPoint, dpID, dp.Attributes, "otel_metric_datapoint_attrs_other"); err != nil {
		return 0, err
	}
	return 1, nil
}

// marshalExemplars renders the opaque exemplar payload to JSON, or nil
// when absent.
func marshalExemplars(exemplars interface{}) ([]byte, error) {
	if exemplars == nil {
		return nil, nil
	}
	return json.Marshal(exemplars)
}
