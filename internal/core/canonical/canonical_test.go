package canonical

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"chatlens/internal/core/model"
)

type stopSet map[string]bool

func (s stopSet) IsStopword(w string) bool { return s[w] }

var fixedNow = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func newT(cfg Config) *Transformer {
	return New(cfg, stopSet{"the": true, "is": true}, WithClock(func() time.Time { return fixedNow }))
}

func sample() []model.RawMessage {
	return []model.RawMessage{
		{Timestamp: "2024-03-01T10:00:00Z", Sender: "Alice", Text: "Hi Bob, is the report done?"},
		{Timestamp: "2024-03-01T10:02:00Z", Sender: "~ Bob", Text: "Almost. Give me an hour"},
		{Timestamp: int64(1709287500000), Sender: "alice@example.com", Text: "Thanks!"},
	}
}

func TestTransform_Basics(t *testing.T) {
	b, err := newT(Config{}).Transform(context.Background(), sample(), model.Metadata{Source: "json"}, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if len(b.Messages) != 3 {
		t.Fatalf("messages = %d", len(b.Messages))
	}
	m := b.Messages[0]
	if m.Sender != "Alice" || m.Source != "json" || m.Position != 0 {
		t.Fatalf("first message = %+v", m)
	}
	if m.NormalizedText != "hi bob, is the report done?" {
		t.Fatalf("normalized = %q", m.NormalizedText)
	}
	if !reflect.DeepEqual(m.Tokens, []string{"hi", "bob", "report", "done"}) {
		t.Fatalf("tokens = %q", m.Tokens)
	}
	if m.WordCount != 6 || m.CharCount != 27 {
		t.Fatalf("counts = %d words %d chars", m.WordCount, m.CharCount)
	}
	if m.Script != "Latin" {
		t.Fatalf("script = %q", m.Script)
	}
	if b.Messages[1].Sender != "Bob" || b.Messages[2].Sender != "alice" {
		t.Fatalf("senders = %q %q", b.Messages[1].Sender, b.Messages[2].Sender)
	}
	if !strings.HasSuffix(m.ID, "_0") {
		t.Fatalf("id = %q", m.ID)
	}
	if !reflect.DeepEqual(b.Participants, []string{"Alice", "Bob", "alice"}) {
		t.Fatalf("participants = %q", b.Participants)
	}
	if len(b.Warnings) != 0 {
		t.Fatalf("warnings = %q", b.Warnings)
	}
}

func TestTransform_IDStability(t *testing.T) {
	a, _ := newT(Config{}).Transform(context.Background(), sample(), model.Metadata{}, nil)
	b, _ := newT(Config{ChunkSize: 1}).Transform(context.Background(), sample(), model.Metadata{}, nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("output depends on chunk size or run")
	}
	seen := map[string]bool{}
	for _, m := range a.Messages {
		if seen[m.ID] {
			t.Fatalf("duplicate id %q", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestMessageID(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := MessageID("Alice", ts, "hello", 3)
	if a != MessageID("alice", ts, "hello", 3) {
		t.Fatalf("sender case must not change the id")
	}
	if a == MessageID("alice", ts, "hello", 4) {
		t.Fatalf("position must change the id")
	}
	long := strings.Repeat("x", 50)
	if MessageID("a", ts, long+"tail one", 0) != MessageID("a", ts, long+"tail two", 0) {
		t.Fatalf("only the first 50 runes of text feed the hash")
	}
	if !strings.HasSuffix(a, "_3") || strings.ContainsAny(a[:len(a)-2], "-_") {
		t.Fatalf("id format = %q", a)
	}
}

func TestTransform_SortsByTimestamp(t *testing.T) {
	raws := []model.RawMessage{
		{Timestamp: "2024-03-01 10:05:00", Sender: "A", Text: "second"},
		{Timestamp: "2024-03-01 10:00:00", Sender: "B", Text: "first"},
		{Timestamp: "2024-03-01 10:05:00", Sender: "C", Text: "third"},
	}
	b, _ := newT(Config{}).Transform(context.Background(), raws, model.Metadata{}, nil)
	got := []string{b.Messages[0].Text, b.Messages[1].Text, b.Messages[2].Text}
	if !reflect.DeepEqual(got, []string{"first", "second", "third"}) {
		t.Fatalf("order = %q", got)
	}
	for i, m := range b.Messages {
		if m.Position != i {
			t.Fatalf("position %d = %d", i, m.Position)
		}
	}

	kept, _ := newT(Config{PreserveOrder: true}).Transform(context.Background(), raws, model.Metadata{}, nil)
	if kept.Messages[0].Text != "second" {
		t.Fatalf("PreserveOrder ignored")
	}
}

func TestTransform_Fallbacks(t *testing.T) {
	raws := []model.RawMessage{
		{Timestamp: "yesterday-ish", Sender: "  ", Text: "hello"},
	}
	b, err := newT(Config{}).Transform(context.Background(), raws, model.Metadata{}, nil)
	if err != nil {
		t.Fatalf("fallbacks must not error: %v", err)
	}
	m := b.Messages[0]
	if !m.Timestamp.Equal(fixedNow) {
		t.Fatalf("timestamp = %v, want injected clock", m.Timestamp)
	}
	if m.Sender != UnknownSender {
		t.Fatalf("sender = %q", m.Sender)
	}
	if len(b.Warnings) != 2 {
		t.Fatalf("warnings = %q", b.Warnings)
	}
}

func TestTransform_ProgressAndCancel(t *testing.T) {
	raws := make([]model.RawMessage, 5)
	for i := range raws {
		raws[i] = model.RawMessage{Timestamp: int64(1700000000 + i), Sender: "A", Text: "x"}
	}
	var calls [][2]int
	_, err := newT(Config{ChunkSize: 2}).Transform(context.Background(), raws, model.Metadata{}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	want := [][2]int{{2, 5}, {4, 5}, {5, 5}}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("progress = %v, want %v", calls, want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newT(Config{}).Transform(ctx, raws, model.Metadata{}, nil); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestTransform_Aggressive(t *testing.T) {
	raws := []model.RawMessage{{Timestamp: 1700000000, Sender: "A", Text: "ping me at bob@x.io or https://x.io :)"}}
	b, _ := newT(Config{Aggressive: true}).Transform(context.Background(), raws, model.Metadata{}, nil)
	if got := b.Messages[0].NormalizedText; got != "ping me at email or url" {
		t.Fatalf("normalized = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"rfc3339", "2024-03-01T10:00:00Z", true},
		{"offset", "2024-03-01T12:00:00+02:00", true},
		{"space layout", "2024-03-01 10:00:00", true},
		{"whatsapp", "3/1/24, 10:00", true},
		{"bracketed", "[2024-03-01 10:00:00]", true},
		{"epoch seconds", int64(1709287200), true},
		{"epoch millis", int64(1709287200000), true},
		{"epoch float", float64(1709287200), true},
		{"epoch string", "1709287200", true},
		{"json number", json.Number("1709287200000"), true},
		{"time", want.In(time.FixedZone("x", 3600)), true},
		{"garbage", "soon", false},
		{"nil", nil, false},
		{"negative", -5, false},
		{"zero time", time.Time{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && !got.Equal(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
			if ok && got.Location() != time.UTC {
				t.Fatalf("not UTC: %v", got.Location())
			}
		})
	}
}

func TestCleanSender(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Alice", "Alice", true},
		{"  ~ Bob  ", "Bob", true},
		{"\u202aCarol\u202c", "Carol", true},
		{"@dave", "dave", true},
		{"[bot] Deploy Bot", "Deploy Bot", true},
		{"Erin Smith <erin@corp.example>", "Erin Smith", true},
		{"<frank@corp.example>", "frank", true},
		{"grace@example.com", "grace", true},
		{"Heidi (via Slack)", "Heidi", true},
		{"Ivan   the  Great", "Ivan the Great", true},
		{"", UnknownSender, false},
		{" ~ ", UnknownSender, false},
	}
	for _, tc := range tests {
		got, ok := CleanSender(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("CleanSender(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
