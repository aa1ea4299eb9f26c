package repo

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/store"
)

type fakeRows struct {
	data [][]any
	i    int
}

func (f *fakeRows) Next() bool { f.i++; return f.i <= len(f.data) }
func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.i-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}
func (f *fakeRows) Err() error        { return nil }
func (f *fakeRows) Close()            {}
func (f *fakeRows) Columns() []string { return nil }

type fakeQ struct {
	sql  []string
	args [][]any
	rows [][]any

	affected fakeTag
}

type fakeTag int64

func (t fakeTag) String() string      { return "UPDATE" }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.sql, f.args = append(f.sql, sql), append(f.args, args)
	return f.affected, nil
}

func (f *fakeQ) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	f.sql, f.args = append(f.sql, sql), append(f.args, args)
	return &fakeRows{data: f.rows}, nil
}

func (f *fakeQ) QueryRow(context.Context, string, ...any) store.Row { return nil }

func statusRow(id, state string) []any {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []any{id, "c1", state, false, 0, "", "", now, now}
}

func TestQueue_EnqueueAndStatus(t *testing.T) {
	q := &fakeQ{rows: [][]any{statusRow("j1", "queued")}}
	r := NewPG().Bind(q)

	st, err := r.Enqueue(context.Background(), "c1", []byte(`{"messages":[]}`))
	if err != nil || st.JobID != "j1" || st.State != "queued" {
		t.Fatalf("enqueue = %+v, %v", st, err)
	}
	if !strings.Contains(q.sql[0], "INSERT INTO analysis_jobs") || q.args[0][1] != `{"messages":[]}` {
		t.Fatalf("sql = %s args = %v", q.sql[0], q.args[0])
	}

	q.rows = nil
	if _, err := r.Status(context.Background(), "j2"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("missing job = %v", err)
	}
}

func TestQueue_Lease(t *testing.T) {
	exp := time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC)
	q := &fakeQ{rows: [][]any{{"j1", "c1", []byte(`{}`), 2, "w1", exp, exp}}}
	r := NewPG().Bind(q)

	jobs, err := r.Lease(context.Background(), "w1", 4, 5*time.Minute)
	if err != nil || len(jobs) != 1 || jobs[0].Attempts != 2 || jobs[0].LeasedBy != "w1" {
		t.Fatalf("lease = %+v, %v", jobs, err)
	}
	if !strings.Contains(q.sql[0], "FOR UPDATE SKIP LOCKED") {
		t.Fatalf("lease must skip locked rows: %s", q.sql[0])
	}
	if a := q.args[0]; a[0] != 4 || a[1] != "w1" || a[2] != "5m0s" {
		t.Fatalf("args = %v", a)
	}
}

func TestQueue_Transitions(t *testing.T) {
	q := &fakeQ{affected: 1}
	r := NewPG().Bind(q)
	ctx := context.Background()
	next := time.Now().Add(time.Second)

	if err := r.Extend(ctx, "j1", "w1", 5*time.Minute); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if err := r.Complete(ctx, "j1", "w1", "a1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := r.Requeue(ctx, "j1", "w1", "boom", next); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if err := r.Fail(ctx, "j1", "w1", "bad"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	want := []string{"lease_expires_at = now() + $3::interval", "state            = 'done'", "attempts         = attempts + 1", "state            = 'failed'"}
	for i, w := range want {
		if !strings.Contains(q.sql[i], w) {
			t.Fatalf("statement %d missing %q:\n%s", i, w, q.sql[i])
		}
		if !strings.Contains(q.sql[i], "leased_by = $2 AND state = 'queued'") {
			t.Fatalf("statement %d does not check lease ownership:\n%s", i, q.sql[i])
		}
		if q.args[i][0] != "j1" || q.args[i][1] != "w1" {
			t.Fatalf("statement %d args = %v", i, q.args[i])
		}
	}
	if q.args[0][2] != "5m0s" || q.args[2][3] != next {
		t.Fatalf("args = %v / %v", q.args[0], q.args[2])
	}

	q.affected = 0
	if err := r.Complete(ctx, "j1", "stale", "a1"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("complete after losing the lease = %v", err)
	}
	if err := r.Extend(ctx, "j1", "stale", time.Minute); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("extend after losing the lease = %v", err)
	}
}
