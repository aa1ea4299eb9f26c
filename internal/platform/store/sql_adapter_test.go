package store

import (
	"context"
	"errors"
	"testing"

	"chatlens/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// jobRows yields (job_id, state) pairs
type jobRows struct {
	data [][2]string
	idx  int
}

func (r *jobRows) Close()                        {}
func (r *jobRows) Err() error                    { return nil }
func (r *jobRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT 1") }
func (r *jobRows) FieldDescriptions() []pgconn.FieldDescription {
	return []pgconn.FieldDescription{{Name: "job_id"}, {Name: "state"}}
}
func (r *jobRows) Next() bool             { r.idx++; return r.idx <= len(r.data) }
func (r *jobRows) Values() ([]any, error) { return nil, nil }
func (r *jobRows) RawValues() [][]byte    { return nil }
func (r *jobRows) Conn() *pgx.Conn        { return nil }
func (r *jobRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	*dest[0].(*string), *dest[1].(*string) = row[0], row[1]
	return nil
}

type scanRow struct{ err error }

func (r scanRow) Scan(dest ...any) error {
	if r.err == nil {
		*dest[0].(*string) = "queued"
	}
	return r.err
}

// fakeTx is a pgx.Tx that records statements and how it ended
type fakeTx struct {
	pgx.Tx
	sqls       []string
	execErr    error
	rowErr     error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	return pgconn.NewCommandTag("UPDATE 1"), f.execErr
}

func (f *fakeTx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.sqls = append(f.sqls, sql)
	return &jobRows{data: [][2]string{{"j1", "queued"}, {"j2", "done"}}}, nil
}

func (f *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.sqls = append(f.sqls, sql)
	return scanRow{err: f.rowErr}
}

func (f *fakeTx) Commit(context.Context) error   { f.committed = true; return nil }
func (f *fakeTx) Rollback(context.Context) error { f.rolledBack = true; return nil }

type recTracer struct{ evs []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.evs = append(r.evs, ev) }

func TestTraced(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTx{}
	tr := &recTracer{}
	q := traced{q: tx, tracer: tr, slowUS: 0}

	tag, err := q.Exec(ctx, "UPDATE analysis_jobs SET lease_expires_at = now()", "j1")
	if err != nil || tag.RowsAffected() != 1 {
		t.Fatalf("exec: %v %v", tag, err)
	}

	rs, err := q.Query(ctx, "SELECT job_id, state FROM analysis_jobs")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if cols := rs.Columns(); len(cols) != 2 || cols[0] != "job_id" {
		t.Fatalf("columns = %v", cols)
	}
	var ids []string
	for rs.Next() {
		var id, state string
		if err := rs.Scan(&id, &state); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}

	// the row event is only sent once Scan ran
	r := q.QueryRow(ctx, "SELECT state FROM analysis_jobs WHERE job_id = $1", "j1")
	if len(tr.evs) != 2 {
		t.Fatalf("events before scan = %d", len(tr.evs))
	}
	var state string
	if err := r.Scan(&state); err != nil || state != "queued" {
		t.Fatalf("scan: %q %v", state, err)
	}
	if len(tr.evs) != 3 || tr.evs[2].Args.([]any)[0] != "j1" {
		t.Fatalf("events = %+v", tr.evs)
	}
	// slowUS 0 marks everything slow
	for _, ev := range tr.evs {
		if !ev.Slow {
			t.Fatalf("event not slow: %+v", ev)
		}
	}

	tx.rowErr = errors.New("no rows")
	_ = q.QueryRow(ctx, "SELECT 1").Scan(&state)
	if last := tr.evs[len(tr.evs)-1]; !errors.Is(last.Err, tx.rowErr) {
		t.Fatalf("scan error not traced: %+v", last)
	}

	// no tracer is fine
	if _, err := (traced{q: tx}).Exec(ctx, "SELECT 1"); err != nil {
		t.Fatal(err)
	}
}

func TestRunTx(t *testing.T) {
	ctx := context.Background()

	tx := &fakeTx{}
	tr := &recTracer{}
	err := runTx(ctx, tx, traced{tracer: tr, slowUS: -1}, func(q RowQuerier) error {
		return ExecOne(ctx, q, "UPDATE analysis_jobs SET state = 'done' WHERE job_id = $1", "j1")
	})
	if err != nil || !tx.committed || tx.rolledBack {
		t.Fatalf("commit path: err %v %+v", err, tx)
	}
	if len(tr.evs) != 1 || tr.evs[0].Slow {
		t.Fatalf("tx statements should be traced, never slow at -1: %+v", tr.evs)
	}

	tx = &fakeTx{execErr: errors.New("serialization")}
	err = runTx(ctx, tx, traced{}, func(q RowQuerier) error {
		_, err := q.Exec(ctx, "INSERT INTO analyses ...")
		return err
	})
	if err == nil || tx.committed || !tx.rolledBack {
		t.Fatalf("rollback path: err %v %+v", err, tx)
	}
}
