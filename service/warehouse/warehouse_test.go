package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earthmover/internal/consts"
	"github.com/earthmover/service"
)

func mockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	// DSN-backed mock so a reconnect reopens a handle onto the same mock.
	dsn := "sqlmock_" + t.Name()
	db, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	// sqlmock drops the DSN registration once its last open handle closes,
	// so hold an anchor handle open for the test's duration; otherwise the
	// service's close-and-reopen during auth retry loses the mock.
	anchor, err := sql.Open("sqlmock", dsn)
	require.NoError(t, err)
	require.NoError(t, anchor.Ping())
	t.Cleanup(func() { _ = anchor.Close() })

	s := &Service{
		name:        "analytics",
		description: "test warehouse",
		timeout:     5 * time.Second,
		db:          db,
	}
	s.reconnect = func() (*sql.DB, error) {
		return sql.Open("sqlmock", dsn)
	}
	t.Cleanup(func() { _ = db.Close() })
	return s, mock
}

func TestService_Query_RowsAsMaps(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("SELECT site_id").WillReturnRows(
		sqlmock.NewRows([]string{"site_id", "equipment_count"}).
			AddRow("ALPHA", int64(12)).
			AddRow("BETA", int64(8)),
	)

	res := s.Query(context.Background(), "SELECT site_id, equipment_count FROM sites")
	require.False(t, res.Unavailable)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "ALPHA", res.Rows[0]["site_id"])
	assert.Equal(t, int64(12), res.Rows[0]["equipment_count"])
}

func TestService_Query_FailureIsUnavailable(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	res := s.Query(context.Background(), "SELECT 1")
	assert.True(t, res.Unavailable)
	assert.Error(t, res.Err)
}

func TestService_Query_AuthExpiryRetriesOnce(t *testing.T) {
	s, mock := mockService(t)

	authErr := &pq.Error{Code: "28000", Message: "authorization expired"}
	mock.ExpectQuery("SELECT model_name").WillReturnError(authErr)
	mock.ExpectQuery("SELECT model_name").WillReturnRows(
		sqlmock.NewRows([]string{"model_name", "optimal_threshold"}).
			AddRow(consts.ModelGhostCycleDetector, 0.42),
	)

	res := s.Query(context.Background(), "SELECT model_name, optimal_threshold FROM ml.profit_curve_thresholds")
	require.False(t, res.Unavailable)
	require.Len(t, res.Rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Query_SecondAuthFailureDegrades(t *testing.T) {
	s, mock := mockService(t)

	authErr := &pq.Error{Code: "28P01", Message: "password expired"}
	mock.ExpectQuery("SELECT").WillReturnError(authErr)
	mock.ExpectQuery("SELECT").WillReturnError(authErr)

	res := s.Query(context.Background(), "SELECT 1")
	assert.True(t, res.Unavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GhostCycleFeed(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("FROM ml.ghost_cycle_predictions").
		WithArgs("ALPHA").
		WillReturnRows(sqlmock.NewRows([]string{
			"equipment_id", "gps_speed_mph", "engine_load_pct", "ghost_probability", "estimated_fuel_waste_gal",
		}).AddRow("HT-042", 4.2, 18.0, 0.81, 1.5))

	feed, ok := s.GhostCycleFeed(context.Background(), "ALPHA")
	require.True(t, ok)
	require.Len(t, feed, 1)
	assert.Equal(t, "HT-042", feed[0].EquipmentID)
	assert.InDelta(t, 0.81, feed[0].Probability, 1e-9)
}

func TestService_GhostCycleFeed_Unavailable(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("FROM ml.ghost_cycle_predictions").WillReturnError(errors.New("timeout"))

	feed, ok := s.GhostCycleFeed(context.Background(), "ALPHA")
	assert.False(t, ok)
	assert.Nil(t, feed)
}

func TestService_OptimalThresholds(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("FROM ml.profit_curve_thresholds").WillReturnRows(
		sqlmock.NewRows([]string{"model_name", "optimal_threshold"}).
			AddRow(consts.ModelGhostCycleDetector, 0.42).
			AddRow(consts.ModelChokePointPredictor, 0.58),
	)

	rows, ok := s.OptimalThresholds(context.Background())
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, consts.ModelGhostCycleDetector, rows[0].ModelName)
	assert.InDelta(t, 0.42, rows[0].OptimalThreshold, 1e-9)
}

func TestService_FleetStatus(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("FROM raw.cycle_events").
		WithArgs("BETA").
		WillReturnRows(sqlmock.NewRows([]string{
			"active_count", "cycles_today", "volume_today", "avg_cycle_time",
		}).AddRow(int64(9), int64(131), 2740.0, 23.4))

	summary, ok := s.FleetStatus(context.Background(), "BETA")
	require.True(t, ok)
	assert.Equal(t, 9, summary.ActiveCount)
	assert.Equal(t, 131, summary.CyclesToday)
	assert.InDelta(t, 23.4, summary.AvgCycleTime, 1e-9)
}

func TestService_ModelMetrics(t *testing.T) {
	s, mock := mockService(t)

	mock.ExpectQuery("FROM ml.model_metrics").
		WithArgs(consts.ModelGhostCycleDetector).
		WillReturnRows(sqlmock.NewRows([]string{"metric_name", "metric_value"}).
			AddRow("precision", 0.91).
			AddRow("recall", 0.84))

	m, ok := s.ModelMetrics(context.Background(), consts.ModelGhostCycleDetector)
	require.True(t, ok)
	assert.InDelta(t, 0.91, m["precision"], 1e-9)
	assert.InDelta(t, 0.84, m["recall"], 1e-9)
}

func TestService_Type(t *testing.T) {
	s, _ := mockService(t)
	assert.Equal(t, service.Warehouse, s.Type())
	assert.Equal(t, "analytics", s.Name())
}
