package dimensions

import (
	"testing"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/stretchr/testify/assert"
)

func kv(k, v string) attrvalue.KeyValue {
	return attrvalue.KeyValue{Key: k, Value: attrvalue.Value{Kind: attrvalue.KindString, Str: v}}
}

func TestResourceHashOrderIndependent(t *testing.T) {
	a := []attrvalue.KeyValue{kv("service.name", "x"), kv("host.name", "h")}
	b := []attrvalue.KeyValue{kv("host.name", "h"), kv("service.name", "x")}
	assert.Equal(t, ResourceHash(a), ResourceHash(b))
}

func TestResourceHashDiffersOnContent(t *testing.T) {
	a := []attrvalue.KeyValue{kv("service.name", "x")}
	b := []attrvalue.KeyValue{kv("service.name", "y")}
	assert.NotEqual(t, ResourceHash(a), ResourceHash(b))
}

func TestResourceHashLastWriteWinsOnDuplicateKey(t *testing.T) {
	a := []attrvalue.KeyValue{kv("k", "first"), kv("k", "second")}
	b := []attrvalue.KeyValue{kv("k", "second")}
	assert.Equal(t, ResourceHash(a), ResourceHash(b))
}

func TestResourceHashIsDeterministic(t *testing.T) {
	attrs := []attrvalue.KeyValue{kv("a", "1"), kv("b", "2")}
	assert.Equal(t, ResourceHash(attrs), ResourceHash(attrs))
}

func TestScopeHashDiffersOnVersion(t *testing.T) {
	h1 := ScopeHash("sdk", "1.0", "schema")
	h2 := ScopeHash("sdk", "2.0", "schema")
	assert.NotEqual(t, h1, h2)
}

func TestMetricHashExcludesNothingButDescription(t *testing.T) {
	h1 := MetricHash("requests", 1, 2, "ms", true)
	h2 := MetricHash("requests", 1, 2, "ms", true)
	assert.Equal(t, h1, h2)

	h3 := MetricHash("requests", 1, 2, "ms", false)
	assert.NotEqual(t, h1, h3)
}

func TestMetricIdentityHashIgnoresTemporalityAndMonotonic(t *testing.T) {
	id1 := MetricIdentityHash("requests", 1, "ms")
	id2 := MetricIdentityHash("requests", 1, "ms")
	assert.Equal(t, id1, id2)

	h1 := MetricHash("requests", 1, 2, "ms", true)
	h2 := MetricHash("requests", 1, 3, "ms", false)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, MetricIdentityHash("requests", 1, "ms"), MetricIdentityHash("requests", 1, "ms"))
}

func TestMetricIdentityHashDiffersOnUnit(t *testing.T) {
	assert.NotEqual(t, MetricIdentityHash("r", 1, "ms"), MetricIdentityHash("r", 1, "s"))
}
