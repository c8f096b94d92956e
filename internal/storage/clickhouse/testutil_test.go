package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"portfolio-risk-lab/internal/observability"
)

// testMetrics is shared by the whole test binary: prometheus registration
// is global, so NewMetrics can only run once per process.
var testMetrics = observability.NewMetrics("chtest")

// setupTestDB creates a ClickHouse container and returns a connection with
// the analytics tables created. Returns a cleanup function.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)
	conn.SetMetrics(testMetrics)

	createTables(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// createTables creates the analytics tables directly. The embedded
// migrations package imports this one, so tests keep their own DDL.
func createTables(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS risk_analyses (
			analysis_id           String,
			portfolio_id          String,
			mean_return           Float64,
			volatility            Float64,
			var_95                Float64,
			var_99                Float64,
			worst_case            Float64,
			best_case             Float64,
			beta                  Float64,
			sharpe_ratio          Float64,
			diversification_score Float64,
			trials                UInt32,
			horizon_days          UInt32,
			analyzed_at           UInt64
		) ENGINE = MergeTree()
		ORDER BY (portfolio_id, analyzed_at, analysis_id)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sentiment_records (
			record_id   String,
			symbol      String,
			source      String,
			score       Float64,
			confidence  Float64,
			label       String,
			snippet     String,
			analyzed_at UInt64
		) ENGINE = MergeTree()
		ORDER BY (symbol, analyzed_at, record_id)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)
}
