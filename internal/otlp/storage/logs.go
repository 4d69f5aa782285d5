package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/ingesterrors"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/router"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/timestamp"
)

// LogRecord is the neutral representation of one OTLP log record.
type LogRecord struct {
	TimeUnixNano            int64
	ObservedTimeUnixNano    int64
	SeverityNumber          int32
	SeverityText            string
	Body                    attrvalue.Value
	Attributes              []attrvalue.KeyValue
	DroppedAttributesCount  uint32
	TraceID                 []byte
	SpanID                  []byte
	TraceFlags              uint32
	Flags                   uint32
}

// ScopeLogs groups log records under one instrumentation scope.
type ScopeLogs struct {
	ScopeName       string
	ScopeVersion    string
	ScopeSchemaURL  string
	ScopeAttributes []attrvalue.KeyValue
	Records         []LogRecord
}

// ResourceLogs groups scope logs under one resource.
type ResourceLogs struct {
	ResourceAttributes             []attrvalue.KeyValue
	ResourceDroppedAttributesCount uint32
	ScopeLogs                      []ScopeLogs
}

// LogsStorage orchestrates the full logs ingestion flow.
type LogsStorage struct {
	*Orchestrator
}

// NewLogsStorage constructs a LogsStorage over the shared orchestrator.
func NewLogsStorage(o *Orchestrator) *LogsStorage {
	return &LogsStorage{Orchestrator: o}
}

// Store drives one ingest batch through dimension upsert, a single fact
// transaction, and attribute routing, per the canonical flow in §4.6.
func (s *LogsStorage) Store(ctx context.Context, batch []ResourceLogs) (Outcome, error) {
	var out Outcome
	var inserts []func(ctx context.Context, tx pgx.Tx) error

	for _, rl := range batch {
		resourceID, _, err := s.Dims.GetOrCreateResource(ctx, rl.ResourceAttributes)
		if err != nil {
			return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalLogs), "upserting resource", err)
		}
		if err := routeAndStoreOther(ctx, s.Autocommit, s.Router, router.OwnerResource, resourceID, rl.ResourceAttributes, "otel_resource_attrs_other"); err != nil {
			return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalLogs), "routing resource attributes", err)
		}

		for _, sl := range rl.ScopeLogs {
			var scopeID *int64
			if sl.ScopeName != "" {
				id, _, err := s.Dims.GetOrCreateScope(ctx, sl.ScopeName, sl.ScopeVersion, sl.ScopeSchemaURL)
				if err != nil {
					return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalLogs), "upserting scope", err)
				}
				scopeID = &id
				if err := routeAndStoreOther(ctx, s.Autocommit, s.Router, router.OwnerScope, id, sl.ScopeAttributes, "otel_scope_attrs_other"); err != nil {
					return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalLogs), "routing scope attributes", err)
				}
			}

			out.RecordsReceived += len(sl.Records)
			if len(sl.Records) == 0 {
				continue
			}

			inserts = append(inserts, func(ctx context.Context, tx pgx.Tx) error {
				stored, err := s.insertLogRecords(ctx, tx, resourceID, scopeID, sl.Records)
				out.RecordsStored += stored
				return err
			})
		}
	}

	if len(inserts) == 0 {
		return out, nil
	}
	err := s.RunFactTransaction(ctx, SignalLogs, func(ctx context.Context, tx pgx.Tx) error {
		for _, insert := range inserts {
			if err := insert(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (s *LogsStorage) insertLogRecords(ctx context.Context, tx pgx.Tx, resourceID int64, scopeID *int64, records []LogRecord) (int, error) {
	const stmt = `
		INSERT INTO otel_logs_fact (
			resource_id, scope_id, time, time_nanos_fraction, observed_time,
			observed_time_nanos_fraction, severity_number, severity_text,
			body_type_id, body, trace_id, span_id_hex, trace_flags,
			dropped_attributes_count, flags
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING log_id`

	stored := 0
	for _, rec := range records {
		effectiveTime := timestamp.ObservedOrFallback(rec.TimeUnixNano, rec.ObservedTimeUnixNano, time.Now)
		ts, tsFrac := timestamp.Split(effectiveTime)

		observed := rec.ObservedTimeUnixNano
		if observed == 0 {
			observed = effectiveTime
		}
		observedTS, observedFrac := timestamp.Split(observed)

		var traceID, spanID interface{}
		if len(rec.TraceID) > 0 {
			if hexID, ok := NormalizeTraceID(rec.TraceID); ok {
				traceID = hexID
			}
		}
		if len(rec.SpanID) > 0 {
			if hexID, ok := NormalizeSpanID(rec.SpanID); ok {
				spanID = hexID
			}
		}

		bodyJSON, err := json.Marshal(rec.Body.ToJSON())
		if err != nil {
			return stored, err
		}

		var logID int64
		if err := tx.QueryRow(ctx, stmt,
			resourceID, scopeID, ts, tsFrac, observedTS, observedFrac,
			nullableInt32(rec.SeverityNumber), nullableStr(rec.SeverityText),
			rec.Body.BodyTypeID(), bodyJSON, traceID, spanID, rec.TraceFlags,
			rec.DroppedAttributesCount, rec.Flags,
		).Scan(&logID); err != nil {
			return stored, err
		}

		if err := routeAndStoreOther(ctx, tx, s.Router, router.OwnerLog, logID, rec.Attributes, "otel_log_attrs_other"); err != nil {
			return stored, err
		}

		stored++
	}
	return stored, nil
}

func nullableInt32(v int32) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
