// Package canonical turns raw export records into immutable canonical messages
package canonical

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"chatlens/internal/core/langhint"
	"chatlens/internal/core/model"
	"chatlens/internal/core/normalize"
)

// StopList decides which tokens are dropped
type StopList interface {
	IsStopword(w string) bool
}

// Config controls normalization and batching
type Config struct {
	Aggressive     bool
	MinTokenLength int
	ChunkSize      int
	// PreserveOrder keeps input order instead of sorting by timestamp
	PreserveOrder bool
}

// Normalize fills defaults and clamps nonsense values
func (c Config) Normalize() Config {
	if c.MinTokenLength < 1 {
		c.MinTokenLength = 2
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	return c
}

// Progress receives completed and total counts after each chunk
type Progress func(done, total int)

// Batch is the transformer output for one conversation
type Batch struct {
	Messages     []model.Message
	Participants []string
	Warnings     []string
}

// Transformer builds canonical messages. It holds no per-run state and is
// safe for concurrent use
type Transformer struct {
	cfg  Config
	norm *normalize.Normalizer
	stop StopList
	now  func() time.Time
}

// Option configures a Transformer
type Option func(*Transformer)

// WithClock sets the clock used for unparseable timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		if now != nil {
			t.now = now
		}
	}
}

// New constructs a Transformer; stop may be nil
func New(cfg Config, stop StopList, opts ...Option) *Transformer {
	cfg = cfg.Normalize()
	t := &Transformer{
		cfg:  cfg,
		norm: normalize.New(normalize.WithAggressive(cfg.Aggressive)),
		stop: stop,
		now:  time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

type parsed struct {
	idx    int
	ts     time.Time
	sender string
	text   string
}

// Transform canonicalizes raws. The only error is context cancellation;
// bad records degrade with a warning instead
func (t *Transformer) Transform(ctx context.Context, raws []model.RawMessage, meta model.Metadata, progress Progress) (Batch, error) {
	var warns []string
	rows := make([]parsed, len(raws))
	for i, r := range raws {
		ts, ok := ParseTimestamp(r.Timestamp)
		if !ok {
			ts = t.now().UTC()
			warns = append(warns, fmt.Sprintf("record %d: unparseable timestamp %v, using current time", i, r.Timestamp))
		}
		sender, ok := CleanSender(r.Sender)
		if !ok {
			warns = append(warns, fmt.Sprintf("record %d: empty sender, using %q", i, UnknownSender))
		}
		rows[i] = parsed{idx: i, ts: ts, sender: sender, text: r.Text}
	}
	if !t.cfg.PreserveOrder {
		slices.SortStableFunc(rows, func(a, b parsed) int { return a.ts.Compare(b.ts) })
	}

	out := make([]model.Message, 0, len(rows))
	total := len(rows)
	for start := 0; start < total; start += t.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		end := min(start+t.cfg.ChunkSize, total)
		for pos := start; pos < end; pos++ {
			out = append(out, t.message(rows[pos], pos, meta.Source))
		}
		if progress != nil {
			progress(end, total)
		}
	}

	return Batch{
		Messages:     out,
		Participants: participants(meta.Participants, out),
		Warnings:     warns,
	}, nil
}

func (t *Transformer) message(p parsed, pos int, source string) model.Message {
	normalized := t.norm.Normalize(p.text)
	return model.Message{
		ID:             MessageID(p.sender, p.ts, p.text, pos),
		Timestamp:      p.ts,
		Sender:         p.sender,
		Text:           p.text,
		Source:         source,
		NormalizedText: normalized,
		Tokens:         t.Tokenize(normalized),
		CharCount:      utf8.RuneCountInString(p.text),
		WordCount:      len(strings.Fields(p.text)),
		Position:       pos,
		Script:         langhint.Script(p.text),
	}
}

// Tokenize splits normalized text into content tokens, dropping short
// tokens and stop words
func (t *Transformer) Tokenize(normalized string) []string {
	words := normalize.Words(normalized)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < t.cfg.MinTokenLength {
			continue
		}
		if t.stop != nil && t.stop.IsStopword(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// participants lists declared participants first, then any other sender in
// order of first appearance
func participants(declared []string, msgs []model.Message) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	for _, d := range declared {
		if n, ok := CleanSender(d); ok {
			add(n)
		}
	}
	for _, m := range msgs {
		add(m.Sender)
	}
	return out
}
