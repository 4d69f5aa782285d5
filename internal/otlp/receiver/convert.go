// Package receiver implements the three OTLP gRPC Export services and the
// bounded worker pool that fans their batches out to the storage layer.
package receiver

import (
	"encoding/hex"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/storage"
)

func resourceAttrs(r *resourcepb.Resource) ([]attrvalue.KeyValue, uint32) {
	if r == nil {
		return nil, 0
	}
	return attrvalue.KVsFromProto(r.Attributes), r.DroppedAttributesCount
}

func scopeFields(s *commonpb.InstrumentationScope) (name, version string, attrs []attrvalue.KeyValue) {
	if s == nil {
		return "", "", nil
	}
	return s.Name, s.Version, attrvalue.KVsFromProto(s.Attributes)
}

// convertTraces converts one gRPC Export request into the neutral batch
// TracesStorage.Store consumes.
func convertTraces(req *coltracepb.ExportTraceServiceRequest) []storage.ResourceSpans {
	out := make([]storage.ResourceSpans, 0, len(req.ResourceSpans))
	for _, rs := range req.ResourceSpans {
		attrs, dropped := resourceAttrs(rs.Resource)
		resourceSpans := storage.ResourceSpans{
			ResourceAttributes:             attrs,
			ResourceDroppedAttributesCount: dropped,
		}
		for _, ss := range rs.ScopeSpans {
			name, version, scopeAttrs := scopeFields(ss.Scope)
			scopeSpans := storage.ScopeSpans{
				ScopeName:       name,
				ScopeVersion:    version,
				ScopeSchemaURL:  ss.SchemaUrl,
				ScopeAttributes: scopeAttrs,
			}
			for _, sp := range ss.Spans {
				scopeSpans.Spans = append(scopeSpans.Spans, convertSpan(sp))
			}
			resourceSpans.ScopeSpans = append(resourceSpans.ScopeSpans, scopeSpans)
		}
		out = append(out, resourceSpans)
	}
	return out
}

func convertSpan(sp *tracepb.Span) storage.Span {
	span := storage.Span{
		TraceID:                sp.TraceId,
		SpanID:                 sp.SpanId,
		ParentSpanID:           sp.ParentSpanId,
		Name:                   sp.Name,
		Kind:                   sp.Kind.String(),
		StartTimeUnixNano:      int64(sp.StartTimeUnixNano),
		EndTimeUnixNano:        int64(sp.EndTimeUnixNano),
		Attributes:             attrvalue.KVsFromProto(sp.Attributes),
		DroppedAttributesCount: sp.DroppedAttributesCount,
		DroppedEventsCount:     sp.DroppedEventsCount,
		DroppedLinksCount:      sp.DroppedLinksCount,
		Flags:                  sp.Flags,
	}
	if sp.Status != nil {
		span.StatusCode = sp.Status.Code.String()
		span.StatusMessage = sp.Status.Message
	}
	for _, ev := range sp.Events {
		span.Events = append(span.Events, storage.SpanEvent{
			Name:                   ev.Name,
			TimeUnixNano:           int64(ev.TimeUnixNano),
			Attributes:             attrvalue.KVsFromProto(ev.Attributes),
			DroppedAttributesCount: ev.DroppedAttributesCount,
		})
	}
	for _, ln := range sp.Links {
		span.Links = append(span.Links, storage.SpanLink{
			LinkedTraceID:          ln.TraceId,
			LinkedSpanID:           ln.SpanId,
			TraceState:             ln.TraceState,
			Attributes:             attrvalue.KVsFromProto(ln.Attributes),
			DroppedAttributesCount: ln.DroppedAttributesCount,
		})
	}
	return span
}

// convertLogs converts one gRPC Export request into the neutral batch
// LogsStorage.Store consumes.
func convertLogs(req *collogspb.ExportLogsServiceRequest) []storage.ResourceLogs {
	out := make([]storage.ResourceLogs, 0, len(req.ResourceLogs))
	for _, rl := range req.ResourceLogs {
		attrs, dropped := resourceAttrs(rl.Resource)
		resourceLogs := storage.ResourceLogs{
			ResourceAttributes:             attrs,
			ResourceDroppedAttributesCount: dropped,
		}
		for _, sl := range rl.ScopeLogs {
			name, version, scopeAttrs := scopeFields(sl.Scope)
			scopeLogs := storage.ScopeLogs{
				ScopeName:       name,
				ScopeVersion:    version,
				ScopeSchemaURL:  sl.SchemaUrl,
				ScopeAttributes: scopeAttrs,
			}
			for _, rec := range sl.LogRecords {
				scopeLogs.Records = append(scopeLogs.Records, storage.LogRecord{
					TimeUnixNano:           int64(rec.TimeUnixNano),
					ObservedTimeUnixNano:   int64(rec.ObservedTimeUnixNano),
					SeverityNumber:         int32(rec.SeverityNumber),
					SeverityText:           rec.SeverityText,
					Body:                   attrvalue.FromProto(rec.Body),
					Attributes:             attrvalue.KVsFromProto(rec.Attributes),
					DroppedAttributesCount: rec.DroppedAttributesCount,
					TraceID:                rec.TraceId,
					SpanID:                 rec.SpanId,
					TraceFlags:             rec.Flags & 0xFF,
					Flags:                  rec.Flags,
				})
			}
			resourceLogs.ScopeLogs = append(resourceLogs.ScopeLogs, scopeLogs)
		}
		out = append(out, resourceLogs)
	}
	return out
}

// convertMetrics converts one gRPC Export request into the neutral batch
// MetricsStorage.Store consumes.
func convertMetrics(req *colmetricspb.ExportMetricsServiceRequest) []storage.ResourceMetrics {
	out := make([]storage.ResourceMetrics, 0, len(req.ResourceMetrics))
	for _, rm := range req.ResourceMetrics {
		attrs, dropped := resourceAttrs(rm.Resource)
		resourceMetrics := storage.ResourceMetrics{
			ResourceAttributes:             attrs,
			ResourceDroppedAttributesCount: dropped,
		}
		for _, sm := range rm.ScopeMetrics {
			name, version, scopeAttrs := scopeFields(sm.Scope)
			scopeMetrics := storage.ScopeMetrics{
				ScopeName:       name,
				ScopeVersion:    version,
				ScopeSchemaURL:  sm.SchemaUrl,
				ScopeAttributes: scopeAttrs,
			}
			for _, m := range sm.Metrics {
				scopeMetrics.Metrics = append(scopeMetrics.Metrics, convertMetric(m))
			}
			resourceMetrics.ScopeMetrics = append(resourceMetrics.ScopeMetrics, scopeMetrics)
		}
		out = append(out, resourceMetrics)
	}
	return out
}

func convertMetric(m *metricspb.Metric) storage.Metric {
	metric := storage.Metric{
		Name:        m.Name,
		Description: m.Description,
		Unit:        m.Unit,
	}

	switch data := m.Data.(type) {
	case *metricspb.Metric_Gauge:
		metric.Type = "GAUGE"
		for _, dp := range data.Gauge.DataPoints {
			metric.NumberDataPoints = append(metric.NumberDataPoints, convertNumberDataPoint(dp))
		}
	case *metricspb.Metric_Sum:
		metric.Type = "SUM"
		metric.Temporality = data.Sum.AggregationTemporality.String()
		metric.Monotonic = data.Sum.IsMonotonic
		for _, dp := range data.Sum.DataPoints {
			metric.NumberDataPoints = append(metric.NumberDataPoints, convertNumberDataPoint(dp))
		}
	case *metricspb.Metric_Histogram:
		metric.Type = "HISTOGRAM"
		metric.Temporality = data.Histogram.AggregationTemporality.String()
		for _, dp := range data.Histogram.DataPoints {
			metric.HistogramDataPoints = append(metric.HistogramDataPoints, convertHistogramDataPoint(dp))
		}
	case *metricspb.Metric_ExponentialHistogram:
		metric.Type = "EXPONENTIAL_HISTOGRAM"
		metric.Temporality = data.ExponentialHistogram.AggregationTemporality.String()
		for _, dp := range data.ExponentialHistogram.DataPoints {
			metric.ExponentialHistogramDataPoints = append(metric.ExponentialHistogramDataPoints, convertExponentialHistogramDataPoint(dp))
		}
	case *metricspb.Metric_Summary:
		metric.Type = "SUMMARY"
		for _, dp := range data.Summary.DataPoints {
			metric.SummaryDataPoints = append(metric.SummaryDataPoints, convertSummaryDataPoint(dp))
		}
	}

	return metric
}

// convertDataPointCommon builds the fields shared by all four data-point
// shapes. Exemplars are carried opaquely; the wire exemplar slice is
// passed straight through and marshaled to JSON at storage time.
func convertDataPointCommon(startTime, t uint64, attrs []*commonpb.KeyValue, flags uint32, exemplars []*metricspb.Exemplar) storage.DataPointCommon {
	common := storage.DataPointCommon{
		StartTimeUnixNano: int64(startTime),
		TimeUnixNano:      int64(t),
		Attributes:        attrvalue.KVsFromProto(attrs),
		Flags:             flags,
	}
	if len(exemplars) > 0 {
		common.Exemplars = convertExemplars(exemplars)
	}
	return common
}

// exemplarJSON is the opaque shape stored for each exemplar; it carries
// enough of the wire fields to correlate a data point back to the trace
// that produced it without a dedicated exemplar table.
type exemplarJSON struct {
	TimeUnixNano int64             `json:"time_unix_nano"`
	ValueInt     *int64            `json:"value_int,omitempty"`
	ValueDouble  *float64          `json:"value_double,omitempty"`
	TraceID      string            `json:"trace_id,omitempty"`
	SpanID       string            `json:"span_id,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

func convertExemplars(exemplars []*metricspb.Exemplar) []exemplarJSON {
	out := make([]exemplarJSON, 0, len(exemplars))
	for _, ex := range exemplars {
		e := exemplarJSON{TimeUnixNano: int64(ex.TimeUnixNano)}
		switch v := ex.Value.(type) {
		case *metricspb.Exemplar_AsInt:
			val := v.AsInt
			e.ValueInt = &val
		case *metricspb.Exemplar_AsDouble:
			val := v.AsDouble
			e.ValueDouble = &val
		}
		if len(ex.TraceId) > 0 {
			e.TraceID = hex.EncodeToString(ex.TraceId)
		}
		if len(ex.SpanId) > 0 {
			e.SpanID = hex.EncodeToString(ex.SpanId)
		}
		if len(ex.FilteredAttributes) > 0 {
			attrs := attrvalue.KVsFromProto(ex.FilteredAttributes)
			m := make(map[string]interface{}, len(attrs))
			for _, kv := range attrs {
				m[kv.Key] = kv.Value.ToJSON()
			}
			e.Attributes = m
		}
		out = append(out, e)
	}
	return out
}

func convertNumberDataPoint(dp *metricspb.NumberDataPoint) storage.NumberDataPoint {
	out := storage.NumberDataPoint{
		DataPointCommon: convertDataPointCommon(dp.StartTimeUnixNano, dp.TimeUnixNano, dp.Attributes, dp.Flags, dp.Exemplars),
	}
	switch v := dp.Value.(type) {
	case *metricspb.NumberDataPoint_AsInt:
		val := v.AsInt
		out.ValueInt = &val
	case *metricspb.NumberDataPoint_AsDouble:
		val := v.AsDouble
		out.ValueDouble = &val
	}
	return out
}

func convertHistogramDataPoint(dp *metricspb.HistogramDataPoint) storage.HistogramDataPoint {
	return storage.HistogramDataPoint{
		DataPointCommon: convertDataPointCommon(dp.StartTimeUnixNano, dp.TimeUnixNano, dp.Attributes, dp.Flags, dp.Exemplars),
		Count:           dp.Count,
		Sum:             dp.Sum,
		Min:             dp.Min,
		Max:             dp.Max,
		BucketCounts:    dp.BucketCounts,
		ExplicitBounds:  dp.ExplicitBounds,
	}
}

func convertExponentialHistogramDataPoint(dp *metricspb.ExponentialHistogramDataPoint) storage.ExponentialHistogramDataPoint {
	out := storage.ExponentialHistogramDataPoint{
		DataPointCommon: convertDataPointCommon(dp.StartTimeUnixNano, dp.TimeUnixNano, dp.Attributes, dp.Flags, dp.Exemplars),
		Count:           dp.Count,
		Sum:             dp.Sum,
		Min:             dp.Min,
		Max:             dp.Max,
		Scale:           dp.Scale,
		ZeroCount:       dp.ZeroCount,
	}
	if dp.Positive != nil {
		out.PositiveOffset = dp.Positive.Offset
		out.PositiveBucketCounts = dp.Positive.BucketCounts
	}
	if dp.Negative != nil {
		out.NegativeOffset = dp.Negative.Offset
		out.NegativeBucketCounts = dp.Negative.BucketCounts
	}
	return out
}

func convertSummaryDataPoint(dp *metricspb.SummaryDataPoint) storage.SummaryDataPoint {
	out := storage.SummaryDataPoint{
		DataPointCommon: convertDataPointCommon(dp.StartTimeUnixNano, dp.TimeUnixNano, dp.Attributes, dp.Flags, nil),
		// SummaryDataPoint carries no exemplars on the wire.
		Count:           dp.Count,
		Sum:             dp.Sum,
	}
	for _, q := range dp.QuantileValues {
		out.Quantiles = append(out.Quantiles, storage.QuantileValue{Quantile: q.Quantile, Value: q.Value})
	}
	return out
}
