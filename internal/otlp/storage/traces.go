package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/ingesterrors"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/router"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/timestamp"
)

// SpanEvent is the neutral representation of one span event.
type SpanEvent struct {
	Name                   string
	TimeUnixNano           int64
	Attributes             []attrvalue.KeyValue
	DroppedAttributesCount uint32
}

// SpanLink is the neutral representation of one span link.
type SpanLink struct {
	LinkedTraceID          []byte
	LinkedSpanID           []byte
	TraceState             string
	Attributes             []attrvalue.KeyValue
	DroppedAttributesCount uint32
}

// Span is the neutral representation of one OTLP span.
type Span struct {
	TraceID                []byte
	SpanID                 []byte
	ParentSpanID           []byte
	Name                   string
	Kind                   string // wire enum name, e.g. SPAN_KIND_SERVER
	StartTimeUnixNano      int64
	EndTimeUnixNano        int64
	StatusCode             string // wire enum name, e.g. STATUS_CODE_OK
	StatusMessage          string
	Attributes             []attrvalue.KeyValue
	Events                 []SpanEvent
	Links                  []SpanLink
	DroppedAttributesCount uint32
	DroppedEventsCount     uint32
	DroppedLinksCount      uint32
	Flags                  uint32
}

// ScopeSpans groups spans under one instrumentation scope.
type ScopeSpans struct {
	ScopeName       string
	ScopeVersion    string
	ScopeSchemaURL  string
	ScopeAttributes []attrvalue.KeyValue
	Spans           []Span
}

// ResourceSpans groups scope spans under one resource.
type ResourceSpans struct {
	ResourceAttributes             []attrvalue.KeyValue
	ResourceDroppedAttributesCount uint32
	ScopeSpans                     []ScopeSpans
}

// TracesStorage orchestrates the full traces ingestion flow.
type TracesStorage struct {
	*Orchestrator
}

// NewTracesStorage constructs a TracesStorage over the shared orchestrator.
func NewTracesStorage(o *Orchestrator) *TracesStorage {
	return &TracesStorage{Orchestrator: o}
}

// Store drives one ingest batch through dimension upsert, a single fact
// transaction, and attribute routing for spans plus their events/links.
func (s *TracesStorage) Store(ctx context.Context, batch []ResourceSpans) (Outcome, error) {
	var out Outcome
	var inserts []func(ctx context.Context, tx pgx.Tx) error

	for _, rs := range batch {
		resourceID, _, err := s.Dims.GetOrCreateResource(ctx, rs.ResourceAttributes)
		if err != nil {
			return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalTraces), "upserting resource", err)
		}
		if err := routeAndStoreOther(ctx, s.Autocommit, s.Router, router.OwnerResource, resourceID, rs.ResourceAttributes, "otel_resource_attrs_other"); err != nil {
			return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalTraces), "routing resource attributes", err)
		}

		for _, ss := range rs.ScopeSpans {
			var scopeID *int64
			if ss.ScopeName != "" {
				id, _, err := s.Dims.GetOrCreateScope(ctx, ss.ScopeName, ss.ScopeVersion, ss.ScopeSchemaURL)
				if err != nil {
					return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalTraces), "upserting scope", err)
				}
				scopeID = &id
				if err := routeAndStoreOther(ctx, s.Autocommit, s.Router, router.OwnerScope, id, ss.ScopeAttributes, "otel_scope_attrs_other"); err != nil {
					return out, ingesterrors.New(ingesterrors.BatchTransient, string(SignalTraces), "routing scope attributes", err)
				}
			}

			valid := make([]Span, 0, len(ss.Spans))
			for _, sp := range ss.Spans {
				if _, ok := NormalizeTraceID(sp.TraceID); !ok {
					out.RecordsDropped++
					continue
				}
				if _, ok := NormalizeSpanID(sp.SpanID); !ok {
					out.RecordsDropped++
					continue
				}
				valid = append(valid, sp)
			}

			out.RecordsReceived += len(ss.Spans)
			if len(valid) == 0 {
				continue
			}

			inserts = append(inserts, func(ctx context.Context, tx pgx.Tx) error {
				stored, err := s.insertSpans(ctx, tx, resourceID, scopeID, valid)
				out.RecordsStored += stored
				return err
			})
		}
	}

	if len(inserts) == 0 {
		return out, nil
	}
	err := s.RunFactTransaction(ctx, SignalTraces, func(ctx context.Context, tx pgx.Tx) error {
		for _, insert := range inserts {
			if err := insert(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (s *TracesStorage) insertSpans(ctx context.Context, tx pgx.Tx, resourceID int64, scopeID *int64, spans []Span) (int, error) {
	const stmt = `
		INSERT INTO otel_spans_fact (
			resource_id, scope_id, trace_id, span_id_hex, parent_span_id_hex,
			name, kind, start_time, start_time_nanos_fraction, end_time,
			end_time_nanos_fraction, status_code, status_message,
			dropped_attributes_count, dropped_events_count, dropped_links_count, flags
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (trace_id, span_id_hex) DO UPDATE SET name = EXCLUDED.name
		RETURNING span_id`

	stored := 0
	for _, sp := range spans {
		traceID, _ := NormalizeTraceID(sp.TraceID)
		spanID, _ := NormalizeSpanID(sp.SpanID)

		var parentID interface{}
		if len(sp.ParentSpanID) > 0 {
			if hexID, ok := NormalizeSpanID(sp.ParentSpanID); ok {
				parentID = hexID
			}
		}

		startTS, startFrac := timestamp.Split(sp.StartTimeUnixNano)
		endTS, endFrac := timestamp.Split(sp.EndTimeUnixNano)

		var spanRowID int64
		if err := tx.QueryRow(ctx, stmt,
			resourceID, scopeID, traceID, spanID, parentID,
			sp.Name, SpanKindID(sp.Kind), startTS, startFrac, endTS, endFrac,
			StatusCodeID(sp.StatusCode), nullableStr(sp.StatusMessage),
			sp.DroppedAttributesCount, sp.DroppedEventsCount, sp.DroppedLinksCount, sp.Flags,
		).Scan(&spanRowID); err != nil {
			return stored, err
		}

		if err := s.routeOwnerAttrs(ctx, tx, "otel_spans_fact", "span_id", router.OwnerSpan, spanRowID, sp.Attributes); err != nil {
			return stored, err
		}

		for _, ev := range sp.Events {
			if err := s.insertSpanEvent(ctx, tx, spanRowID, ev); err != nil {
				return stored, err
			}
		}
		for _, ln := range sp.Links {
			if err := s.insertSpanLink(ctx, tx, spanRowID, ln); err != nil {
				return stored, err
			}
		}

		stored++
	}
	return stored, nil
}

func (s *TracesStorage) insertSpanEvent(ctx context.Context, tx pgx.Tx, spanID int64, ev SpanEvent) error {
	const stmt = `
		INSERT INTO otel_span_events (span_id, name, time, time_nanos_fraction, dropped_attributes_count)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING event_id`

	ts, frac := timestamp.Split(ev.TimeUnixNano)
	var eventID int64
	if err := tx.QueryRow(ctx, stmt, spanID, ev.Name, ts, frac, ev.DroppedAttributesCount).Scan(&eventID); err != nil {
		return err
	}
	return s.routeOwnerAttrs(ctx, tx, "otel_span_events", "event_id", router.OwnerSpanEvent, eventID, ev.Attributes)
}

func (s *TracesStorage) insertSpanLink(ctx context.Context, tx pgx.Tx, spanID int64, ln SpanLink) error {
	const stmt = `
		INSERT INTO otel_span_links (span_id, linked_trace_id, linked_span_id_hex, trace_state, dropped_attributes_count)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING link_id`

	linkedTrace, _ := NormalizeTraceID(ln.LinkedTraceID)
	linkedSpan, _ := NormalizeSpanID(ln.LinkedSpanID)

	var linkID int64
	if err := tx.QueryRow(ctx, stmt, spanID, linkedTrace, linkedSpan, nullableStr(ln.TraceState), ln.DroppedAttributesCount).Scan(&linkID); err != nil {
		return err
	}
	return s.routeOwnerAttrs(ctx, tx, "otel_span_links", "link_id", router.OwnerSpanLink, linkID, ln.Attributes)
}

// routeOwnerAttrs runs the attribute router for an owner row and writes
// the catch-all map to its *_attrs_other table when non-empty.
func (s *TracesStorage) routeOwnerAttrs(ctx context.Context, tx pgx.Tx, factTable, idColumn string, owner router.Owner, ownerID int64, attrs []attrvalue.KeyValue) error {
	return routeAndStoreOther(ctx, tx, s.Router, owner, ownerID, attrs, otherTableFor(factTable))
}

func otherTableFor(factTable string) string {
	switch factTable {
	case "otel_spans_fact":
		return "otel_span_attrs_other"
	case "otel_span_events":
		return "otel_span_event_attrs_other"
	case "otel_span_links":
		return "otel_span_link_attrs_other"
	default:
		return ""
	}
}
