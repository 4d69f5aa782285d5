package readiness

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func expectTablesExist(mock pgxmock.PgxPoolIface) {
	for range requiredTables {
		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	}
}

func TestCheckReadyWhenSchemaCompleteAndVersionMatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTablesExist(mock)
	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"version", "dirty"}).AddRow(int64(ExpectedSchemaVersion), false))

	s := New(mock, "schema_migrations", time.Second, testLogger())
	ready, reason := s.check(context.Background())
	assert.True(t, ready, "reason: %s", reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckUnreadyWhenTableMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT to_regclass").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	s := New(mock, "schema_migrations", time.Second, testLogger())
	ready, reason := s.check(context.Background())
	assert.False(t, ready)
	assert.Contains(t, reason, "missing table")
}

func TestCheckUnreadyWhenDirty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTablesExist(mock)
	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"version", "dirty"}).AddRow(int64(ExpectedSchemaVersion), true))

	s := New(mock, "schema_migrations", time.Second, testLogger())
	ready, reason := s.check(context.Background())
	assert.False(t, ready)
	assert.Contains(t, reason, "dirty")
}

func TestCheckUnreadyWhenVersionMismatched(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTablesExist(mock)
	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"version", "dirty"}).AddRow(int64(ExpectedSchemaVersion-1), false))

	s := New(mock, "schema_migrations", time.Second, testLogger())
	ready, reason := s.check(context.Background())
	assert.False(t, ready)
	assert.Contains(t, reason, "does not match expected version")
}

func TestPollTransitionsState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTablesExist(mock)
	mock.ExpectQuery("SELECT version, dirty FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"version", "dirty"}).AddRow(int64(ExpectedSchemaVersion), false))

	s := New(mock, "schema_migrations", time.Second, testLogger())
	assert.False(t, s.Ready(), "a freshly constructed supervisor starts unready")

	s.poll(context.Background())
	assert.True(t, s.Ready())
}
