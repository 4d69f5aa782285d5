package storage

import "strings"

// spanKindIDs maps the OTLP wire enum names to the span_kinds reference
// table ids seeded by the migration. Unknown values map to UNSPECIFIED (0).
var spanKindIDs = map[string]int16{
	"SPAN_KIND_UNSPECIFIED": 0,
	"SPAN_KIND_INTERNAL":    1,
	"SPAN_KIND_SERVER":      2,
	"SPAN_KIND_CLIENT":      3,
	"SPAN_KIND_PRODUCER":    4,
	"SPAN_KIND_CONSUMER":    5,
}

// statusCodeIDs maps OTLP status code names to the status_codes reference
// table ids. Unknown values map to UNSET (0).
var statusCodeIDs = map[string]int16{
	"STATUS_CODE_UNSET": 0,
	"STATUS_CODE_OK":    1,
	"STATUS_CODE_ERROR": 2,
}

// temporalityIDs maps OTLP aggregation temporality names to the
// aggregation_temporalities reference table ids.
var temporalityIDs = map[string]int16{
	"AGGREGATION_TEMPORALITY_UNSPECIFIED": 0,
	"AGGREGATION_TEMPORALITY_DELTA":       1,
	"AGGREGATION_TEMPORALITY_CUMULATIVE":  2,
}

// The MetricType* constants are the metric_types reference table ids for
// each OTLP data-point shape (mapped from wire names by metricTypeIDFor).
const (
	MetricTypeGauge           int16 = 1
	MetricTypeSum             int16 = 2
	MetricTypeHistogram       int16 = 3
	MetricTypeExpHistogram    int16 = 4
	MetricTypeSummary         int16 = 5
)

func enumID(table map[string]int16, name string) int16 {
	id, ok := table[strings.ToUpper(name)]
	if !ok {
		return 0
	}
	return id
}

// SpanKindID resolves a wire span-kind name to its reference table id.
func SpanKindID(name string) int16 { return enumID(spanKindIDs, name) }

// StatusCodeID resolves a wire status-code name to its reference table id.
func StatusCodeID(name string) int16 { return enumID(statusCodeIDs, name) }

// TemporalityID resolves a wire aggregation-temporality name to its
// reference table id.
func TemporalityID(name string) int16 { return enumID(temporalityIDs, name) }
