package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaykv/harness/pkg/stats"
)

// ErrRunNotFound reports a run ID with no row behind it.
var ErrRunNotFound = errors.New("benchmark run not found")

// pgConn is the subset of pgxpool.Pool the store needs. Tests substitute a
// recording implementation.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore persists benchmark runs in PostgreSQL.
type PGStore struct {
	conn pgConn
	pool *pgxpool.Pool
}

// NewPGStore connects to PostgreSQL, verifies the connection and creates
// the run tables if they do not exist.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{conn: pool, pool: pool}

	// Create tables if they don't exist
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// newPGStoreWithConn builds a store over an existing connection, skipping
// pool setup and migration.
func newPGStoreWithConn(conn pgConn) *PGStore {
	return &PGStore{conn: conn}
}

// migrate creates the necessary database tables
func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS benchmark_runs (
		id UUID PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		mode TEXT NOT NULL,
		ops INTEGER NOT NULL,
		concurrency INTEGER NOT NULL,
		mean_ops_per_sec DOUBLE PRECISION NOT NULL
	);

	CREATE TABLE IF NOT EXISTS benchmark_reports (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES benchmark_runs(id) ON DELETE CASCADE,
		op_type TEXT NOT NULL,
		operations INTEGER NOT NULL,
		successful INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		elapsed_ns BIGINT NOT NULL,
		ops_per_sec DOUBLE PRECISION NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_benchmark_runs_started_at ON benchmark_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_benchmark_reports_run_id ON benchmark_reports(run_id);
	`

	_, err := s.conn.Exec(ctx, schema)
	return err
}

// InsertRun stores a run and one row per category report.
func (s *PGStore) InsertRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO benchmark_runs (id, started_at, mode, ops, concurrency, mean_ops_per_sec)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.conn.Exec(ctx, query,
		run.ID,
		run.StartedAt,
		run.Mode,
		run.Ops,
		run.Concurrency,
		run.MeanOpsPerSecond,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	reportQuery := `
		INSERT INTO benchmark_reports (run_id, op_type, operations, successful, failed, elapsed_ns, ops_per_sec)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, r := range run.Reports {
		_, err := s.conn.Exec(ctx, reportQuery,
			run.ID,
			string(r.OpType),
			r.Operations,
			r.Successful,
			r.Failed,
			r.Elapsed.Nanoseconds(),
			r.OpsPerSecond,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s report: %w", r.OpType, err)
		}
	}

	return nil
}

// GetRun retrieves a run and its reports by ID.
func (s *PGStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, started_at, mode, ops, concurrency, mean_ops_per_sec
		FROM benchmark_runs
		WHERE id = $1
	`

	run := &Run{}
	err := s.conn.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.Mode,
		&run.Ops,
		&run.Concurrency,
		&run.MeanOpsPerSecond,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	reports, err := s.runReports(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Reports = reports

	return run, nil
}

func (s *PGStore) runReports(ctx context.Context, id uuid.UUID) ([]stats.Report, error) {
	query := `
		SELECT op_type, operations, successful, failed, elapsed_ns, ops_per_sec
		FROM benchmark_reports
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := s.conn.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []stats.Report
	for rows.Next() {
		var r stats.Report
		var opType string
		var elapsedNS int64

		err := rows.Scan(
			&opType,
			&r.Operations,
			&r.Successful,
			&r.Failed,
			&elapsedNS,
			&r.OpsPerSecond,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		r.OpType = stats.OpType(opType)
		r.Elapsed = time.Duration(elapsedNS)
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

// ListRuns returns recent runs without their reports, newest first.
func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, mode, ops, concurrency, mean_ops_per_sec
		FROM benchmark_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}

		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.Mode,
			&run.Ops,
			&run.Concurrency,
			&run.MeanOpsPerSecond,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
