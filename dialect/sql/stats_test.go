package sql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tychodb/tycho/dialect"
)

func newMockStatsDriver(t *testing.T, opts ...StatsOption) (*StatsDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	drv := OpenDB(dialect.SQLite, db)
	return NewStatsDriver(drv, opts...), mock
}

func TestStatsDriverRecordsQueriesAndExecs(t *testing.T) {
	sd, mock := newMockStatsDriver(t)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO users DEFAULT VALUES").WillReturnResult(sqlmock.NewResult(1, 1))

	var rows Rows
	require.NoError(t, sd.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	var res Result
	require.NoError(t, sd.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, &res))

	stats := sd.QueryStats().Stats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.TotalExecs)
	assert.Equal(t, int64(0), stats.Errors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverRecordsErrors(t *testing.T) {
	sd, mock := newMockStatsDriver(t)

	mock.ExpectQuery("SELECT 1").WillReturnError(assert.AnError)

	var rows Rows
	err := sd.Query(context.Background(), "SELECT 1", []any{}, &rows)
	require.Error(t, err)

	assert.Equal(t, int64(1), sd.QueryStats().Stats().Errors)
}

func TestStatsDriverSlowQueryHookFiresPastThreshold(t *testing.T) {
	var gotQuery string
	var called bool
	sd, mock := newMockStatsDriver(t,
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			called = true
			gotQuery = query
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	var rows Rows
	require.NoError(t, sd.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	assert.True(t, called)
	assert.Equal(t, "SELECT 1", gotQuery)
	assert.Equal(t, int64(1), sd.QueryStats().Stats().SlowQueries)
}

func TestStatsDriverSlowQueryHookDoesNotFireBelowThreshold(t *testing.T) {
	called := false
	sd, mock := newMockStatsDriver(t,
		WithSlowThreshold(time.Hour),
		WithSlowQueryHook(func(context.Context, string, []any, time.Duration) { called = true }),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	var rows Rows
	require.NoError(t, sd.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	assert.False(t, called)
	assert.Equal(t, int64(0), sd.QueryStats().Stats().SlowQueries)
}

func TestWithStatsSharesCounterAcrossWraps(t *testing.T) {
	shared := &QueryStats{}

	db1, mock1, err := sqlmock.New()
	require.NoError(t, err)
	defer db1.Close()
	sd1 := NewStatsDriver(OpenDB(dialect.SQLite, db1), WithStats(shared))

	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	defer db2.Close()
	sd2 := NewStatsDriver(OpenDB(dialect.SQLite, db2), WithStats(shared))

	mock1.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock2.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	var rows1, rows2 Rows
	require.NoError(t, sd1.Query(context.Background(), "SELECT 1", []any{}, &rows1))
	require.NoError(t, rows1.Close())
	require.NoError(t, sd2.Query(context.Background(), "SELECT 1", []any{}, &rows2))
	require.NoError(t, rows2.Close())

	assert.Equal(t, int64(2), shared.Stats().TotalQueries)
	assert.Same(t, shared, sd1.QueryStats())
	assert.Same(t, shared, sd2.QueryStats())
}

func TestStatsTxRecordsStatistics(t *testing.T) {
	sd, mock := newMockStatsDriver(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO users DEFAULT VALUES").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := sd.Tx(context.Background())
	require.NoError(t, err)

	var rows Rows
	require.NoError(t, tx.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	var res Result
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, &res))
	require.NoError(t, tx.Commit())

	stats := sd.QueryStats().Stats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.TotalExecs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebugDriverLogsCommands(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var logged []string
	dd := NewDebugDriver(OpenDB(dialect.SQLite, db), DebugWithLog(func(_ context.Context, v ...any) {
		logged = append(logged, fmt.Sprint(v...))
	}))

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	var rows Rows
	require.NoError(t, dd.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	assert.Len(t, logged, 1)
}
