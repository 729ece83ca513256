package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/relaykv/harness/pkg/stats"
)

type sqlCall struct {
	sql  string
	args []any
}

// fakePGConn records every statement so tests can assert on the exact
// SQL traffic without a live database.
type fakePGConn struct {
	execs   []sqlCall
	queries []sqlCall

	execErr  error
	queryErr error
	row      fakeRow
	rows     *fakeRows
}

func (f *fakePGConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sqlCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakePGConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sqlCall{sql: sql, args: args})
	return f.row
}

func (f *fakePGConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sqlCall{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		return &fakeRows{}, nil
	}
	return f.rows, nil
}

type fakeRow struct {
	src []any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if err := assignValue(dest[i], r.src[i]); err != nil {
			return err
		}
	}
	return nil
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i := range dest {
		if err := assignValue(dest[i], row[i]); err != nil {
			return err
		}
	}
	return nil
}

func assignValue(dest, src any) error {
	switch d := dest.(type) {
	case *string:
		*d = src.(string)
	case *int:
		*d = src.(int)
	case *int64:
		*d = src.(int64)
	case *float64:
		*d = src.(float64)
	case *uuid.UUID:
		*d = src.(uuid.UUID)
	case *time.Time:
		*d = src.(time.Time)
	default:
		return fmt.Errorf("unsupported scan target %T", dest)
	}
	return nil
}

func TestMigrateCreatesRunTables(t *testing.T) {
	conn := &fakePGConn{}
	s := newPGStoreWithConn(conn)

	if err := s.migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(conn.execs) != 1 {
		t.Fatalf("migrate issued %d statements, want 1", len(conn.execs))
	}
	schema := conn.execs[0].sql
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS benchmark_runs",
		"CREATE TABLE IF NOT EXISTS benchmark_reports",
		"CREATE INDEX IF NOT EXISTS idx_benchmark_reports_run_id",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}

func TestInsertRunOneInsertPerReport(t *testing.T) {
	conn := &fakePGConn{}
	s := newPGStoreWithConn(conn)
	run := sampleRun()

	if err := s.InsertRun(context.Background(), run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	// One run row plus one row per category report.
	if len(conn.execs) != 4 {
		t.Fatalf("InsertRun issued %d statements, want 4", len(conn.execs))
	}

	first := conn.execs[0]
	if !strings.Contains(first.sql, "INSERT INTO benchmark_runs") {
		t.Errorf("first statement = %q, want run insert", first.sql)
	}
	if len(first.args) != 6 {
		t.Errorf("run insert has %d args, want 6", len(first.args))
	}
	if first.args[0] != run.ID {
		t.Errorf("run insert id = %v, want %v", first.args[0], run.ID)
	}

	wantTypes := []string{"PUT", "GET", "MIXED"}
	for i, call := range conn.execs[1:] {
		if !strings.Contains(call.sql, "INSERT INTO benchmark_reports") {
			t.Errorf("statement %d = %q, want report insert", i+1, call.sql)
		}
		if len(call.args) != 7 {
			t.Errorf("report insert %d has %d args, want 7", i, len(call.args))
		}
		if call.args[0] != run.ID {
			t.Errorf("report insert %d run_id = %v, want %v", i, call.args[0], run.ID)
		}
		if call.args[1] != wantTypes[i] {
			t.Errorf("report insert %d op_type = %v, want %s", i, call.args[1], wantTypes[i])
		}
		if call.args[5] != run.Reports[i].Elapsed.Nanoseconds() {
			t.Errorf("report insert %d elapsed = %v, want %d", i, call.args[5], run.Reports[i].Elapsed.Nanoseconds())
		}
	}
}

func TestInsertRunWithoutReports(t *testing.T) {
	conn := &fakePGConn{}
	s := newPGStoreWithConn(conn)

	run := NewRun("concurrent", 100, 10)
	run.Finish(nil)

	if err := s.InsertRun(context.Background(), run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if len(conn.execs) != 1 {
		t.Errorf("InsertRun issued %d statements, want 1", len(conn.execs))
	}
}

func TestInsertRunPropagatesError(t *testing.T) {
	down := errors.New("connection reset")
	conn := &fakePGConn{execErr: down}
	s := newPGStoreWithConn(conn)

	err := s.InsertRun(context.Background(), sampleRun())
	if !errors.Is(err, down) {
		t.Errorf("InsertRun error = %v, want wrapped %v", err, down)
	}
	if len(conn.execs) != 1 {
		t.Errorf("InsertRun kept going after a failed run insert: %d statements", len(conn.execs))
	}
}

func TestGetRunNotFound(t *testing.T) {
	conn := &fakePGConn{row: fakeRow{err: pgx.ErrNoRows}}
	s := newPGStoreWithConn(conn)

	_, err := s.GetRun(context.Background(), uuid.New())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun error = %v, want ErrRunNotFound", err)
	}
}

func TestGetRunWithReports(t *testing.T) {
	id := uuid.New()
	started := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	conn := &fakePGConn{
		row: fakeRow{src: []any{id, started, "suite", 100, 10, 57.75}},
		rows: &fakeRows{rows: [][]any{
			{"PUT", 100, 98, 2, int64(2 * time.Second), 49.0},
			{"GET", 100, 100, 0, int64(time.Second), 100.0},
		}},
	}
	s := newPGStoreWithConn(conn)

	run, err := s.GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.ID != id || !run.StartedAt.Equal(started) {
		t.Errorf("run identity = %s/%v, want %s/%v", run.ID, run.StartedAt, id, started)
	}
	if run.Mode != "suite" || run.Ops != 100 || run.Concurrency != 10 {
		t.Errorf("run shape = %s/%d/%d", run.Mode, run.Ops, run.Concurrency)
	}
	if len(run.Reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(run.Reports))
	}
	if run.Reports[0].OpType != stats.OpPut || run.Reports[0].Elapsed != 2*time.Second {
		t.Errorf("report 0 = %+v", run.Reports[0])
	}
	if run.Reports[1].OpsPerSecond != 100.0 {
		t.Errorf("report 1 rate = %v, want 100", run.Reports[1].OpsPerSecond)
	}

	if len(conn.queries) != 2 {
		t.Fatalf("GetRun issued %d queries, want 2", len(conn.queries))
	}
	if !strings.Contains(conn.queries[0].sql, "FROM benchmark_runs") {
		t.Errorf("first query = %q, want run lookup", conn.queries[0].sql)
	}
	if !strings.Contains(conn.queries[1].sql, "FROM benchmark_reports") {
		t.Errorf("second query = %q, want report lookup", conn.queries[1].sql)
	}
	if conn.queries[1].args[0] != id {
		t.Errorf("report lookup keyed by %v, want %v", conn.queries[1].args[0], id)
	}
}

func TestListRuns(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	newer := time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	conn := &fakePGConn{
		rows: &fakeRows{rows: [][]any{
			{a, newer, "suite", 100, 10, 60.0},
			{b, older, "concurrent", 500, 25, 812.5},
		}},
	}
	s := newPGStoreWithConn(conn)

	runs, err := s.ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != a || runs[1].ID != b {
		t.Errorf("run IDs = %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[1].MeanOpsPerSecond != 812.5 {
		t.Errorf("MeanOpsPerSecond = %v, want 812.5", runs[1].MeanOpsPerSecond)
	}
	if !strings.Contains(conn.queries[0].sql, "ORDER BY started_at DESC") {
		t.Errorf("list query not newest-first: %q", conn.queries[0].sql)
	}
	if conn.queries[0].args[0] != 5 {
		t.Errorf("list limit = %v, want 5", conn.queries[0].args[0])
	}
}
