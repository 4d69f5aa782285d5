package router

import (
	"context"
	"os"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/keys"
	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/promotion"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func loadPolicy(t *testing.T, yamlBody string) *promotion.Policy {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/base.yaml"
	require.NoError(t, writeFile(path, yamlBody))
	p, err := promotion.Load(path, "")
	require.NoError(t, err)
	return p
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}

func strAttr(k, v string) attrvalue.KeyValue {
	return attrvalue.KeyValue{Key: k, Value: attrvalue.Value{Kind: attrvalue.KindString, Str: v}}
}

func intAttr(k string, v int64) attrvalue.KeyValue {
	return attrvalue.KeyValue{Key: k, Value: attrvalue.Value{Kind: attrvalue.KindInt, Int: v}}
}

func TestRoutePromotesConfiguredKeyToTypedTable(t *testing.T) {
	policy := loadPolicy(t, `
promote:
  spans:
    string: [http.method]
`)
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO attribute_keys").
		WithArgs("http.method").
		WillReturnRows(pgxmock.NewRows([]string{"key_id"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO otel_span_attrs_string").
		WithArgs(int64(100), int64(1), "GET").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	reg, err := keys.New(mock)
	require.NoError(t, err)
	r := New(policy, reg)

	result, err := r.Route(context.Background(), mock, OwnerSpan, 100, []attrvalue.KeyValue{strAttr("http.method", "GET")})
	require.NoError(t, err)
	require.Empty(t, result.Other)
	require.Contains(t, result.Promoted[attrvalue.KindString], "http.method")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteSendsUnpromotedKeyToOther(t *testing.T) {
	policy := loadPolicy(t, "promote: {}\n")
	mock := newMock(t)
	reg, err := keys.New(mock)
	require.NoError(t, err)
	r := New(policy, reg)

	result, err := r.Route(context.Background(), mock, OwnerResource, 1, []attrvalue.KeyValue{strAttr("custom.tag", "v")})
	require.NoError(t, err)
	require.Equal(t, "v", result.Other["custom.tag"])
	require.Empty(t, result.Promoted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteDropsKeyWithoutWritingAnywhere(t *testing.T) {
	dir := t.TempDir()
	base := dir + "/base.yaml"
	require.NoError(t, writeFile(base, `
promote:
  spans:
    string: [password]
`))
	override := dir + "/override.yaml"
	require.NoError(t, writeFile(override, `
drop:
  spans: [password]
`))
	policy, err := promotion.Load(base, override)
	require.NoError(t, err)

	mock := newMock(t)
	reg, err := keys.New(mock)
	require.NoError(t, err)
	r := New(policy, reg)

	result, err := r.Route(context.Background(), mock, OwnerSpan, 1, []attrvalue.KeyValue{strAttr("password", "hunter2")})
	require.NoError(t, err)
	require.Equal(t, 1, result.DroppedCount)
	require.Empty(t, result.Other)
	require.Empty(t, result.Promoted)
	require.NoError(t, mock.ExpectationsWereMet(), "a dropped key must never reach the database")
}

func TestRouteComplexValueAlwaysGoesToOther(t *testing.T) {
	policy := loadPolicy(t, `
promote:
  resource:
    string: [x]
`)
	mock := newMock(t)
	reg, err := keys.New(mock)
	require.NoError(t, err)
	r := New(policy, reg)

	arrayVal := attrvalue.Value{Kind: attrvalue.KindArray, Array: []attrvalue.Value{{Kind: attrvalue.KindInt, Int: 1}}}
	result, err := r.Route(context.Background(), mock, OwnerResource, 1, []attrvalue.KeyValue{{Key: "tags", Value: arrayVal}})
	require.NoError(t, err)
	require.Contains(t, result.Other, "tags")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteIntTypeRoutedIndependentlyOfStringPromotion(t *testing.T) {
	policy := loadPolicy(t, `
promote:
  spans:
    string: [http.method]
`)
	mock := newMock(t)
	reg, err := keys.New(mock)
	require.NoError(t, err)
	r := New(policy, reg)

	result, err := r.Route(context.Background(), mock, OwnerSpan, 1, []attrvalue.KeyValue{intAttr("http.status_code", 200)})
	require.NoError(t, err)
	require.Equal(t, int64(200), result.Other["http.status_code"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteEmptyValueSkipped(t *testing.T) {
	policy := loadPolicy(t, "promote: {}\n")
	mock := newMock(t)
	reg, err := keys.New(mock)
	require.NoError(t, err)
	r := New(policy, reg)

	result, err := r.Route(context.Background(), mock, OwnerResource, 1, []attrvalue.KeyValue{{Key: "unset", Value: attrvalue.Value{Kind: attrvalue.KindEmpty}}})
	require.NoError(t, err)
	require.Empty(t, result.Other)
	require.Empty(t, result.Promoted)
	require.NoError(t, mock.ExpectationsWereMet())
}
