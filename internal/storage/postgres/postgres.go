// Package postgres implements the relational stores on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-risk-lab/internal/observability"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
	metrics *observability.Metrics
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// SetMetrics enables query duration and error instrumentation on the pool.
func (p *Pool) SetMetrics(m *observability.Metrics) {
	p.metrics = m
}

func (p *Pool) observe(operation string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.DBQueryDuration.WithLabelValues("postgres", operation).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.DBQueryErrors.WithLabelValues("postgres", operation).Inc()
	}
}

// Query runs a query through the pool, recording duration and errors.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.Pool.Query(ctx, sql, args...)
	p.observe("query", start, err)
	return rows, err
}

// QueryRow runs a single-row query through the pool. Errors surface at
// Scan time, so only the duration is recorded here.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	start := time.Now()
	row := p.Pool.QueryRow(ctx, sql, args...)
	p.observe("query_row", start, nil)
	return row
}

// Exec runs a statement through the pool, recording duration and errors.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := p.Pool.Exec(ctx, sql, args...)
	p.observe("exec", start, err)
	return tag, err
}

// Begin starts a transaction, recording duration and errors. Statements
// inside the transaction are not individually instrumented.
func (p *Pool) Begin(ctx context.Context) (pgx.Tx, error) {
	start := time.Now()
	tx, err := p.Pool.Begin(ctx)
	p.observe("begin", start, err)
	return tx, err
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
