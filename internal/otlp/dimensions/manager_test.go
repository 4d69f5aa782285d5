package dimensions

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ryanfaircloth/ollyscale-sub000/internal/otlp/attrvalue"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strAttr(k, v string) attrvalue.KeyValue {
	return attrvalue.KeyValue{Key: k, Value: attrvalue.Value{Kind: attrvalue.KindString, Str: v}}
}

func TestGetOrCreateResourceUpserts(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_resources_dim").
		WillReturnRows(pgxmock.NewRows([]string{"resource_id"}).AddRow(int64(42)))

	mgr := New(mock, DefaultConfig(), func() time.Time { return time.Unix(1000, 0) })
	attrs := []attrvalue.KeyValue{strAttr("service.name", "checkout"), strAttr("service.namespace", "shop")}

	id, hash, err := mgr.GetOrCreateResource(context.Background(), attrs)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NotEmpty(t, hash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateResourceCachesWithinTTL(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_resources_dim").
		WillReturnRows(pgxmock.NewRows([]string{"resource_id"}).AddRow(int64(1)))

	clock := time.Unix(1000, 0)
	mgr := New(mock, DefaultConfig(), func() time.Time { return clock })
	attrs := []attrvalue.KeyValue{strAttr("service.name", "checkout")}

	_, _, err := mgr.GetOrCreateResource(context.Background(), attrs)
	require.NoError(t, err)

	id, _, err := mgr.GetOrCreateResource(context.Background(), attrs)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, 1, mgr.ResourceCacheSize())
	require.NoError(t, mock.ExpectationsWereMet(), "second call within TTL must not requery")
}

func TestGetOrCreateResourceRequeriesAfterTTL(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_resources_dim").
		WillReturnRows(pgxmock.NewRows([]string{"resource_id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO otel_resources_dim").
		WillReturnRows(pgxmock.NewRows([]string{"resource_id"}).AddRow(int64(1)))

	clock := time.Unix(1000, 0)
	cfg := DefaultConfig()
	cfg.CacheTTL = time.Minute
	mgr := New(mock, cfg, func() time.Time { return clock })
	attrs := []attrvalue.KeyValue{strAttr("service.name", "checkout")}

	_, _, err := mgr.GetOrCreateResource(context.Background(), attrs)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, _, err = mgr.GetOrCreateResource(context.Background(), attrs)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateScopeUpserts(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_scopes_dim").
		WillReturnRows(pgxmock.NewRows([]string{"scope_id"}).AddRow(int64(9)))

	mgr := New(mock, DefaultConfig(), nil)
	id, hash, err := mgr.GetOrCreateScope(context.Background(), "otelgrpc", "1.0", "")
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
	require.NotEmpty(t, hash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearCacheOnManager(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_resources_dim").
		WillReturnRows(pgxmock.NewRows([]string{"resource_id"}).AddRow(int64(1)))

	mgr := New(mock, DefaultConfig(), nil)
	attrs := []attrvalue.KeyValue{strAttr("service.name", "x")}
	_, _, err := mgr.GetOrCreateResource(context.Background(), attrs)
	require.NoError(t, err)
	require.Equal(t, 1, mgr.ResourceCacheSize())

	mgr.ClearCache()
	require.Equal(t, 0, mgr.ResourceCacheSize())
	require.Equal(t, 0, mgr.ScopeCacheSize())
}

func TestPgIntervalRendersSeconds(t *testing.T) {
	require.Equal(t, "300 seconds", pgInterval(5*time.Minute))
}

func TestNullableStrEmptyIsNil(t *testing.T) {
	require.Nil(t, nullableStr(""))
	require.Equal(t, "x", nullableStr("x"))
}
