// Package dictionary provides the optional word lookup collaborator used to
// widen keyword matching with synonyms. Clients are constructed explicitly,
// initialize lazily once and must be closed by their owner
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("dictionary: client closed")

// Meaning is one sense of a word
type Meaning struct {
	Definition string   `json:"definition,omitempty" yaml:"definition,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// Entry is a dictionary record keyed by lowercase word; Meanings are
// indexed by part of speech
type Entry struct {
	Word     string               `json:"word" yaml:"word"`
	Meanings map[string][]Meaning `json:"meanings" yaml:"meanings"`
}

// Synonyms flattens every sense into a sorted, deduplicated list
func (e Entry) Synonyms() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, ms := range e.Meanings {
		for _, m := range ms {
			for _, s := range m.Synonyms {
				s = strings.ToLower(strings.TrimSpace(s))
				if s == "" || s == e.Word {
					continue
				}
				if _, ok := seen[s]; ok {
					continue
				}
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Provider is a backing store for entries
type Provider interface {
	Open(ctx context.Context) error
	Lookup(ctx context.Context, word string) (Entry, bool, error)
	Close() error
}

// Client wraps a Provider with lazy single initialization, per lookup
// timeouts and an explicit lifecycle
type Client struct {
	p       Provider
	timeout time.Duration

	once    sync.Once
	initErr error
	closed  atomic.Bool
}

// DefaultTimeout bounds a single lookup
const DefaultTimeout = 50 * time.Millisecond

// NewClient wraps p; timeout <= 0 uses DefaultTimeout
func NewClient(p Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{p: p, timeout: timeout}
}

// Init opens the provider once. Later calls return the first result
func (c *Client) Init(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.once.Do(func() {
		if c.p == nil {
			c.initErr = errors.New("dictionary: no provider")
			return
		}
		c.initErr = c.p.Open(ctx)
	})
	return c.initErr
}

// Lookup fetches the entry for word, initializing on first use
func (c *Client) Lookup(ctx context.Context, word string) (Entry, bool, error) {
	if err := c.Init(ctx); err != nil {
		return Entry{}, false, err
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return Entry{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	e, ok, err := c.p.Lookup(ctx, word)
	if err != nil {
		return Entry{}, false, fmt.Errorf("dictionary: lookup %q: %w", word, err)
	}
	return e, ok, nil
}

// Synonyms returns the flattened synonyms of word; unknown words yield nil
func (c *Client) Synonyms(ctx context.Context, word string) ([]string, error) {
	e, ok, err := c.Lookup(ctx, word)
	if err != nil || !ok {
		return nil, err
	}
	return e.Synonyms(), nil
}

// Close releases the provider. It is safe to call more than once
func (c *Client) Close() error {
	if c.closed.Swap(true) || c.p == nil {
		return nil
	}
	return c.p.Close()
}
