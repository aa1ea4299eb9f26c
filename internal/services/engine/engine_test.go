package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatlens/internal/core/dictionary"
	"chatlens/internal/core/model"
	"chatlens/internal/core/narrative"
	"chatlens/internal/core/pipeline"
	"chatlens/internal/platform/config"
)

type stubGen struct {
	calls int
	err   error
}

func (s *stubGen) Model() string { return "stub-1" }

func (s *stubGen) Generate(_ context.Context, b narrative.Brief) (narrative.Draft, error) {
	s.calls++
	if s.err != nil {
		return narrative.Draft{}, s.err
	}
	return narrative.Draft{Summary: fmt.Sprintf("%d segments", len(b.Segments)), Themes: []string{"planning"}}, nil
}

func conversation() []model.RawMessage {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	lines := []string{
		"can we review the launch plan today",
		"yes the launch plan needs a budget check",
		"i will share the budget numbers",
		"great the numbers look fine",
		"ok that is done",
		"thank you so much",
	}
	out := make([]model.RawMessage, len(lines))
	for i, l := range lines {
		sender := "Ana"
		if i%2 == 1 {
			sender = "Ben"
		}
		out[i] = model.RawMessage{Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339), Sender: sender, Text: l}
	}
	return out
}

func TestFromConfig(t *testing.T) {
	t.Setenv("CHATLENS_ENGINE_TAXONOMY", "relationship")
	t.Setenv("CHATLENS_ENGINE_INACTIVITY", "45m")
	t.Setenv("CHATLENS_ENGINE_MAX_SEGMENT", "20")
	t.Setenv("CHATLENS_ENGINE_DICTIONARY", "file")
	t.Setenv("SERVICE_REDIS_URL", "redis://cache:6379/0")
	t.Setenv("OPENAI_TIMEOUT", "5s")

	o := FromConfig(config.New())
	if o.Taxonomy != "relationship" || o.Inactivity != 45*time.Minute || o.MaxSegment != 20 {
		t.Fatalf("engine options = %+v", o)
	}
	if o.Dictionary != DictionaryFile || o.RedisURL != "redis://cache:6379/0" || o.NarrativeTimeout != 5*time.Second {
		t.Fatalf("collaborator options = %+v", o)
	}
	if o.DictionaryTimeout != 50*time.Millisecond {
		t.Fatalf("dictionary timeout = %v", o.DictionaryTimeout)
	}

	pc := o.Pipeline()
	if pc.Segment.Inactivity != 45*time.Minute || pc.Segment.MaxSize != 20 || pc.Segment.MinSize != 3 {
		t.Fatalf("segment config = %+v", pc.Segment)
	}
	if pc.Taxonomy != "relationship" || pc.Workers != 4 {
		t.Fatalf("pipeline config = %+v", pc)
	}
}

func TestNew_DictionaryProviders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.json")
	if err := os.WriteFile(path, []byte(`[{"word":"plan","meanings":{"noun":[{"synonyms":["schedule","agenda"]}]}}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
		dict    string
	}{
		{name: "none", opts: Options{}, dict: DictionaryNone},
		{name: "file", opts: Options{Dictionary: DictionaryFile, DictionaryFile: path}, dict: DictionaryFile},
		{name: "file missing path", opts: Options{Dictionary: DictionaryFile}, wantErr: true},
		{name: "file unreadable", opts: Options{Dictionary: DictionaryFile, DictionaryFile: filepath.Join(dir, "nope.json")}, wantErr: true},
		{name: "redis missing url", opts: Options{Dictionary: DictionaryRedis}, wantErr: true},
		{name: "redis bad url", opts: Options{Dictionary: DictionaryRedis, RedisURL: "http://x"}, wantErr: true},
		{name: "unknown", opts: Options{Dictionary: "ldap"}, wantErr: true},
		{name: "bad taxonomy", opts: Options{Taxonomy: "astrology"}, wantErr: true},
	}
	for _, tt := range tests {
		e, err := New(tt.opts)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got := e.Info().Dictionary; got != tt.dict {
			t.Fatalf("%s: dictionary = %q want %q", tt.name, got, tt.dict)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("%s: close: %v", tt.name, err)
		}
	}
}

func TestAnalyze_Narrative(t *testing.T) {
	gen := &stubGen{}
	e, err := New(Options{}, WithGenerator(gen), WithDictionary(dictionary.NewStatic()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = e.Close() }()

	info := e.Info()
	if !info.Narrative || info.NarrativeModel != "stub-1" || info.Dictionary != "custom" || info.Taxonomy != "business" {
		t.Fatalf("info = %+v", info)
	}

	ctx := context.Background()
	meta := model.Metadata{ChatID: "launch"}

	res, err := e.Analyze(ctx, conversation(), meta, false, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Metadata.Narrative != nil || gen.calls != 0 {
		t.Fatalf("narrative without request: %+v", res.Metadata.Narrative)
	}

	res, err = e.Analyze(ctx, conversation(), meta, true, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	n := res.Metadata.Narrative
	if n == nil || !n.Generated || n.Model != "stub-1" || gen.calls != 1 {
		t.Fatalf("narrative = %+v calls=%d", n, gen.calls)
	}

	gen.err = errors.New("quota")
	res, err = e.Analyze(ctx, conversation(), meta, true, nil)
	if err != nil {
		t.Fatalf("narrative failure leaked: %v", err)
	}
	if n := res.Metadata.Narrative; n == nil || n.Generated || n.Reason == "" {
		t.Fatalf("failed narrative = %+v", n)
	}
}

func TestAnalyze_Disabled(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := e.Analyze(context.Background(), conversation(), model.Metadata{}, true, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if n := res.Metadata.Narrative; n == nil || n.Generated || n.Reason != "disabled" {
		t.Fatalf("narrative = %+v", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Analyze(ctx, conversation(), model.Metadata{}, false, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled analyze = %v", err)
	}
}

func TestAnalyzeMany(t *testing.T) {
	gen := &stubGen{}
	e, err := New(Options{}, WithGenerator(gen))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = e.Close() }()

	convs := []pipeline.Conversation{
		{Raws: conversation(), Meta: model.Metadata{ChatID: "first"}},
		{Raws: nil, Meta: model.Metadata{ChatID: "empty"}},
		{Raws: conversation(), Meta: model.Metadata{ChatID: "third"}},
	}

	out := e.AnalyzeMany(context.Background(), convs, false)
	if len(out) != 3 {
		t.Fatalf("outcomes = %d", len(out))
	}
	if out[0].Err != nil || out[0].Result.Metadata.ChatID != "first" || out[2].Result.Metadata.ChatID != "third" {
		t.Fatalf("order lost: %+v / %+v", out[0].Result.Metadata, out[2].Result.Metadata)
	}
	if out[0].Result.Metadata.Narrative != nil || gen.calls != 0 {
		t.Fatalf("narrative without request")
	}

	out = e.AnalyzeMany(context.Background(), convs, true)
	for _, i := range []int{0, 2} {
		if n := out[i].Result.Metadata.Narrative; out[i].Err == nil && (n == nil || !n.Generated) {
			t.Fatalf("outcome %d narrative = %+v", i, n)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i, o := range e.AnalyzeMany(ctx, convs, true) {
		if !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("outcome %d after cancel = %v", i, o.Err)
		}
	}
}
