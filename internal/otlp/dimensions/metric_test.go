package dimensions

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateMetricUpserts(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_metrics_dim").
		WillReturnRows(pgxmock.NewRows([]string{"metric_id"}).AddRow(int64(3)))

	mgr := NewMetricManager(mock, DefaultConfig(), func() time.Time { return time.Unix(1000, 0) })
	d := MetricDescriptor{Name: "http.server.duration", TypeID: 3, Unit: "ms", Temporality: 2, Monotonic: true}

	id, hash, err := mgr.GetOrCreateMetric(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, int64(3), id)
	require.NotEmpty(t, hash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateMetricCachesWithinTTL(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_metrics_dim").
		WillReturnRows(pgxmock.NewRows([]string{"metric_id"}).AddRow(int64(7)))

	mgr := NewMetricManager(mock, DefaultConfig(), nil)
	d := MetricDescriptor{Name: "requests", TypeID: 2, Unit: "1", Temporality: 1, Monotonic: true}

	_, _, err := mgr.GetOrCreateMetric(context.Background(), d)
	require.NoError(t, err)
	id, _, err := mgr.GetOrCreateMetric(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Equal(t, 1, mgr.CacheSize())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricManagerClearCache(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("INSERT INTO otel_metrics_dim").
		WillReturnRows(pgxmock.NewRows([]string{"metric_id"}).AddRow(int64(1)))

	mgr := NewMetricManager(mock, DefaultConfig(), nil)
	d := MetricDescriptor{Name: "x", TypeID: 1, Unit: "", Temporality: 0, Monotonic: false}
	_, _, err := mgr.GetOrCreateMetric(context.Background(), d)
	require.NoError(t, err)

	mgr.ClearCache()
	require.Equal(t, 0, mgr.CacheSize())
}
