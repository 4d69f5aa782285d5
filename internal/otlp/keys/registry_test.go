package keys

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestGetOrCreateKeyIDUpserts(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO attribute_keys").
		WithArgs("http.method").
		WillReturnRows(pgxmock.NewRows([]string{"key_id"}).AddRow(int64(1)))

	reg, err := New(mock)
	require.NoError(t, err)

	id, err := reg.GetOrCreateKeyID(context.Background(), "http.method")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateKeyIDCachesSecondCall(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO attribute_keys").
		WithArgs("http.method").
		WillReturnRows(pgxmock.NewRows([]string{"key_id"}).AddRow(int64(1)))

	reg, err := New(mock)
	require.NoError(t, err)

	_, err = reg.GetOrCreateKeyID(context.Background(), "http.method")
	require.NoError(t, err)

	id, err := reg.GetOrCreateKeyID(context.Background(), "http.method")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, 1, reg.CacheSize())
	require.NoError(t, mock.ExpectationsWereMet(), "second call must be served from cache, no second query")
}

func TestClearCacheForcesRequery(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO attribute_keys").
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"key_id"}).AddRow(int64(5)))
	mock.ExpectQuery("INSERT INTO attribute_keys").
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"key_id"}).AddRow(int64(5)))

	reg, err := New(mock)
	require.NoError(t, err)

	_, err = reg.GetOrCreateKeyID(context.Background(), "k")
	require.NoError(t, err)

	reg.ClearCache()
	require.Equal(t, 0, reg.CacheSize())

	_, err = reg.GetOrCreateKeyID(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
