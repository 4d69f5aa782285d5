package dimensions

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
)

// ResourceHash computes the SHA-256 hex digest of a canonicalized resource
// attribute set: keys sorted, values rendered through a stable JSON
// encoding, no incidental whitespace. Identical semantic content hashes
// identically regardless of wire order.
func ResourceHash(attrs []attrvalue.KeyValue) string {
	return hashCanonical(canonicalAttrMap(attrs))
}

// ScopeHash computes the SHA-256 hex digest of {name, version, schemaURL}.
func ScopeHash(name, version, schemaURL string) string {
	return hashCanonical(map[string]interface{}{
		"name":      name,
		"version":   version,
		"schemaUrl": schemaURL,
	})
}

// MetricHash computes the identity hash of a metric descriptor: name,
// type, unit, temporality, and monotonicity together determine whether
// two metric points belong to the same series. Description is
// deliberately excluded so a changed description does not fork the
// dimension row.
func MetricHash(name string, metricType, temporality int16, unit string, monotonic bool) string {
	return hashCanonical(map[string]interface{}{
		"name":        name,
		"type":        metricType,
		"unit":        unit,
		"temporality": temporality,
		"monotonic":   monotonic,
	})
}

// MetricIdentityHash computes the coarser grouping hash used to associate
// variant descriptions of the same underlying metric (name, type, unit
// only) — grounded in the identity/description split described in
// SPEC_FULL.md §2.3.
func MetricIdentityHash(name string, metricType int16, unit string) string {
	return hashCanonical(map[string]interface{}{
		"name": name,
		"type": metricType,
		"unit": unit,
	})
}

// canonicalAttrMap folds a possibly-duplicated attribute list into a
// plain map of JSON-able values, last write wins for a repeated key —
// mirroring how a flattened OTLP attribute list is treated everywhere
// else in this package.
func canonicalAttrMap(attrs []attrvalue.KeyValue) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		out[kv.Key] = kv.Value.ToJSON()
	}
	return out
}

func hashCanonical(v map[string]interface{}) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]orderedPair, len(keys))
	for i, k := range keys {
		ordered[i] = orderedPair{Key: k, Value: v[k]}
	}

	// json.Marshal on a slice of key/value structs (rather than a Go map)
	// guarantees key order in the output bytes, which a map encoding does
	// not promise across encoding/json versions.
	buf, err := json.Marshal(ordered)
	if err != nil {
		// Values originate from attrvalue.ToJSON, which only ever produces
		// JSON-marshalable primitives, slices, and maps of the same.
		panic("dimensions: unmarshalable canonical value: " + err.Error())
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

type orderedPair struct {
	Key   string      `json:"k"`
	Value interface{} `json:"v"`
}
