// Package router implements the Attribute Router: for one owner row it
// splits an attribute bag into typed-table inserts and a JSONB catch-all
// map, driven by the promotion policy.
package router

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/keys"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/promotion"
)

// DB is the minimal query surface Route needs. Both *pgxpool.Pool (used
// for resource/scope attributes, which run on the autocommit connection)
// and pgx.Tx (used for fact-row attributes, which run inside the batch's
// single fact transaction) satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Owner identifies the attribute-table family an owner row belongs to
// (resource, scope, log, span, span_event, span_link, metric_datapoint).
type Owner string

const (
	OwnerResource          Owner = "resource"
	OwnerScope             Owner = "scope"
	OwnerLog               Owner = "log"
	OwnerSpan              Owner = "span"
	OwnerSpanEvent         Owner = "span_event"
	OwnerSpanLink          Owner = "span_link"
	OwnerMetricDataPoint   Owner = "metric_datapoint"
)

// tablePrefix maps an Owner to the `otel_<prefix>_attrs_*` table family.
var tablePrefix = map[Owner]string{
	OwnerResource:        "otel_resource",
	OwnerScope:           "otel_scope",
	OwnerLog:             "otel_log",
	OwnerSpan:            "otel_span",
	OwnerSpanEvent:       "otel_span_event",
	OwnerSpanLink:        "otel_span_link",
	OwnerMetricDataPoint: "otel_metric_datapoint",
}

// signalForOwner maps an Owner to the promotion-policy signal name,
// which does not always match the table prefix (span events/links are
// policy-classified under the "spans" signal, since the policy document
// has no dedicated event/link section).
var signalForOwner = map[Owner]string{
	OwnerResource:        "resource",
	OwnerScope:           "scope",
	OwnerLog:             "logs",
	OwnerSpan:            "spans",
	OwnerSpanEvent:       "spans",
	OwnerSpanLink:        "spans",
	OwnerMetricDataPoint: "metrics",
}

// Router splits attribute bags into typed-table rows and a catch-all map.
type Router struct {
	policy *promotion.Policy
	keys   *keys.Registry
}

// New constructs a Router.
func New(policy *promotion.Policy, registry *keys.Registry) *Router {
	return &Router{policy: policy, keys: registry}
}

// Result is the outcome of routing one owner's attribute bag.
type Result struct {
	// Other holds keys that were not promoted, for the owner's *_attrs_other JSONB column.
	Other map[string]interface{}
	// Promoted holds, per value type, the (key, value) pairs written to typed tables — returned for observability.
	Promoted map[attrvalue.Kind]map[string]interface{}
	DroppedCount int
}

// Route classifies and writes attrs for ownerID, executing typed-table
// inserts via db and returning the catch-all map for the caller to
// attach to the owner's *_attrs_other table.
func (r *Router) Route(ctx context.Context, db DB, owner Owner, ownerID int64, attrs []attrvalue.KeyValue) (Result, error) {
	signal := signalForOwner[owner]
	prefix := tablePrefix[owner]

	result := Result{
		Other:    make(map[string]interface{}),
		Promoted: make(map[attrvalue.Kind]map[string]interface{}),
	}

	for _, kv := range attrs {
		if r.policy.ShouldDrop(kv.Key) {
			result.DroppedCount++
			continue
		}

		if kv.Value.IsComplex() {
			result.Other[kv.Key] = kv.Value.ToJSON()
			continue
		}

		valueType := valueTypeName(kv.Value.Kind)
		if valueType == "" {
			// empty/unset value: nothing to store either way.
			continue
		}

		decision := r.policy.Classify(signal, kv.Key, valueType)
		switch decision {
		case promotion.Promote:
			keyID, err := r.keys.GetOrCreateKeyID(ctx, kv.Key)
			if err != nil {
				return Result{}, fmt.Errorf("resolving attribute key %q: %w", kv.Key, err)
			}
			if err := insertTypedAttr(ctx, db, prefix, valueType, ownerID, keyID, kv.Value); err != nil {
				return Result{}, fmt.Errorf("inserting typed attribute %q: %w", kv.Key, err)
			}
			bucket, ok := result.Promoted[kv.Value.Kind]
			if !ok {
				bucket = make(map[string]interface{})
				result.Promoted[kv.Value.Kind] = bucket
			}
			bucket[kv.Key] = kv.Value.ToJSON()
		default:
			result.Other[kv.Key] = kv.Value.ToJSON()
		}
	}

	return result, nil
}

func valueTypeName(k attrvalue.Kind) string {
	switch k {
	case attrvalue.KindString:
		return "string"
	case attrvalue.KindInt:
		return "int"
	case attrvalue.KindDouble:
		return "double"
	case attrvalue.KindBool:
		return "bool"
	case attrvalue.KindBytes:
		return "bytes"
	default:
		return ""
	}
}

func insertTypedAttr(ctx context.Context, db DB, prefix, valueType string, ownerID, keyID int64, v attrvalue.Value) error {
	table := fmt.Sprintf("%s_attrs_%s", prefix, valueType)
	stmt := fmt.Sprintf(`
		INSERT INTO %s (owner_id, key_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, key_id) DO UPDATE SET value = EXCLUDED.value`, table)

	var value interface{}
	switch v.Kind {
	case attrvalue.KindString:
		value = v.Str
	case attrvalue.KindInt:
		value = v.Int
	case attrvalue.KindDouble:
		value = v.Double
	case attrvalue.KindBool:
		value = v.Bool
	case attrvalue.KindBytes:
		value = v.Bytes
	}

	_, err := db.Exec(ctx, stmt, ownerID, keyID, value)
	return err
}
