package dictionary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type countingProvider struct {
	Static
	opens  int
	closes int
	delay  time.Duration
	err    error
}

func (p *countingProvider) Open(context.Context) error {
	p.opens++
	return p.err
}

func (p *countingProvider) Lookup(ctx context.Context, word string) (Entry, bool, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return Entry{}, false, ctx.Err()
		}
	}
	return p.Static.Lookup(ctx, word)
}

func (p *countingProvider) Close() error {
	p.closes++
	return nil
}

func happy() Entry {
	return Entry{Word: "Happy", Meanings: map[string][]Meaning{
		"adjective": {
			{Definition: "feeling pleasure", Synonyms: []string{"Glad", "content", "happy"}},
			{Synonyms: []string{"glad", "fortunate"}},
		},
	}}
}

func TestEntrySynonyms(t *testing.T) {
	e := NewStatic(happy()).entries["happy"]
	got := e.Synonyms()
	want := []string{"content", "fortunate", "glad"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("synonyms = %q, want %q", got, want)
	}
}

func TestClient_LazyInitOnce(t *testing.T) {
	p := &countingProvider{Static: *NewStatic(happy())}
	c := NewClient(p, 0)
	if p.opens != 0 {
		t.Fatalf("client must not open eagerly")
	}
	for range 3 {
		syn, err := c.Synonyms(context.Background(), " HAPPY ")
		if err != nil || len(syn) != 3 {
			t.Fatalf("synonyms = %q, %v", syn, err)
		}
	}
	if p.opens != 1 {
		t.Fatalf("opens = %d, want 1", p.opens)
	}
	if _, ok, err := c.Lookup(context.Background(), "sad"); ok || err != nil {
		t.Fatalf("unknown word: ok=%v err=%v", ok, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = c.Close()
	if p.closes != 1 {
		t.Fatalf("closes = %d, want 1", p.closes)
	}
	if _, _, err := c.Lookup(context.Background(), "happy"); !errors.Is(err, ErrClosed) {
		t.Fatalf("lookup after close err = %v", err)
	}
}

func TestClient_InitErrorSticks(t *testing.T) {
	p := &countingProvider{err: errors.New("boom")}
	c := NewClient(p, 0)
	for range 2 {
		if _, err := c.Synonyms(context.Background(), "x"); err == nil {
			t.Fatalf("expected init error")
		}
	}
	if p.opens != 1 {
		t.Fatalf("opens = %d", p.opens)
	}
}

func TestClient_Timeout(t *testing.T) {
	p := &countingProvider{Static: *NewStatic(happy()), delay: time.Second}
	c := NewClient(p, 5*time.Millisecond)
	start := time.Now()
	_, err := c.Synonyms(context.Background(), "happy")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not applied")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	js := filepath.Join(dir, "dict.json")
	ym := filepath.Join(dir, "dict.yaml")
	if err := os.WriteFile(js, []byte(`[{"word":"agree","meanings":{"verb":[{"synonyms":["concur","accept"]}]}}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ym, []byte("- word: agree\n  meanings:\n    verb:\n      - synonyms: [concur, accept]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{js, ym} {
		s, err := LoadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		syn, err := NewClient(s, 0).Synonyms(context.Background(), "agree")
		if err != nil || !reflect.DeepEqual(syn, []string{"accept", "concur"}) {
			t.Fatalf("%s: synonyms = %q, %v", path, syn, err)
		}
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0o600)
	if _, err := LoadFile(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDialRedis_BadURL(t *testing.T) {
	if _, err := DialRedis("not a url", ""); err == nil {
		t.Fatalf("expected parse error")
	}
	r, err := DialRedis("redis://localhost:6379/0", "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if r.prefix != DefaultKeyPrefix {
		t.Fatalf("prefix = %q", r.prefix)
	}
	_ = r.Close()
}
