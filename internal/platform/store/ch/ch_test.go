package ch

import (
	"context"
	"errors"
	"testing"

	"chatlens/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type fakeBatch struct {
	driver.Batch
	rows    [][]any
	sent    bool
	aborted bool
	failAt  int
}

func (b *fakeBatch) Append(v ...any) error {
	if b.failAt > 0 && len(b.rows)+1 == b.failAt {
		return errors.New("type mismatch")
	}
	b.rows = append(b.rows, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

type fakeConn struct {
	driver.Conn
	batch  *fakeBatch
	query  string
	execs  []string
	closed bool
}

func (c *fakeConn) Exec(_ context.Context, q string, _ ...any) error {
	c.execs = append(c.execs, q)
	return nil
}

func (c *fakeConn) PrepareBatch(_ context.Context, q string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.query = q
	return c.batch, nil
}
func (c *fakeConn) Close() error { c.closed = true; return nil }

func TestOpen_ParsesDSN(t *testing.T) {
	testkit.Serial(t)
	var got *clickhouse.Options
	testkit.Swap(t, &openConn, func(o *clickhouse.Options) (driver.Conn, error) {
		got = o
		return &fakeConn{}, nil
	})

	cl, err := Open(context.Background(), Config{URL: "clickhouse://u:p@ch-host:9000/analytics", Role: "worker", MaxConns: 7})
	if err != nil || cl == nil {
		t.Fatalf("open: %v", err)
	}
	if len(got.Addr) != 1 || got.Addr[0] != "ch-host:9000" || got.Auth.Database != "analytics" || got.Auth.Username != "u" {
		t.Fatalf("options = %+v", got)
	}
	if got.MaxOpenConns != 7 {
		t.Fatalf("max conns = %d", got.MaxOpenConns)
	}
	var role string
	for _, p := range got.ClientInfo.Products {
		if p.Name == "role" {
			role = p.Version
		}
	}
	if role != "worker" {
		t.Fatalf("client info = %+v", got.ClientInfo)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("empty url accepted")
	}
	if _, err := Open(context.Background(), Config{URL: "::not a dsn"}); err == nil {
		t.Fatalf("bad dsn accepted")
	}
}

func TestInsert_Batch(t *testing.T) {
	fc := &fakeConn{batch: &fakeBatch{}}
	cl := &CH{conn: fc}

	if err := cl.Insert(context.Background(), "critical_moments", nil); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
	if fc.query != "" {
		t.Fatalf("empty insert prepared a batch")
	}

	rows := [][]any{{"c1", 0}, {"c1", 1}}
	if err := cl.Insert(context.Background(), "critical_moments", rows); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if fc.query != "INSERT INTO critical_moments" || len(fc.batch.rows) != 2 || !fc.batch.sent {
		t.Fatalf("batch = %+v query = %q", fc.batch, fc.query)
	}

	fc.batch = &fakeBatch{failAt: 2}
	if err := cl.Insert(context.Background(), "critical_moments", rows); err == nil {
		t.Fatalf("append failure ignored")
	}
	if !fc.batch.aborted || fc.batch.sent {
		t.Fatalf("failed batch not aborted: %+v", fc.batch)
	}

	if err := cl.Close(); err != nil || !fc.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestExec(t *testing.T) {
	fc := &fakeConn{}
	cl := &CH{conn: fc}
	if err := cl.Exec(context.Background(), "CREATE TABLE t (x Int32) ENGINE = Memory"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(fc.execs) != 1 || fc.execs[0] != "CREATE TABLE t (x Int32) ENGINE = Memory" {
		t.Fatalf("execs = %v", fc.execs)
	}
}

func TestNilClient(t *testing.T) {
	var cl *CH
	ctx := context.Background()
	if err := cl.Insert(ctx, "t", [][]any{{1}}); err == nil {
		t.Fatalf("nil insert succeeded")
	}
	if _, err := cl.Query(ctx, "SELECT 1"); err == nil {
		t.Fatalf("nil query succeeded")
	}
	if err := cl.Ping(ctx); err == nil {
		t.Fatalf("nil ping succeeded")
	}
	if err := cl.Exec(ctx, "SELECT 1"); err == nil {
		t.Fatalf("nil exec succeeded")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
