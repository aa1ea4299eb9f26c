package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Static serves entries from memory
type Static struct {
	entries map[string]Entry
}

// NewStatic indexes entries by lowercase word; later duplicates win
func NewStatic(entries ...Entry) *Static {
	s := &Static{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		e.Word = strings.ToLower(strings.TrimSpace(e.Word))
		if e.Word != "" {
			s.entries[e.Word] = e
		}
	}
	return s
}

// LoadFile reads a JSON or YAML list of entries, chosen by extension
func LoadFile(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: read %s: %w", path, err)
	}
	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &entries)
	default:
		err = json.Unmarshal(b, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("dictionary: parse %s: %w", path, err)
	}
	return NewStatic(entries...), nil
}

// Open is a no-op
func (s *Static) Open(context.Context) error { return nil }

// Lookup returns the entry for word
func (s *Static) Lookup(ctx context.Context, word string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	e, ok := s.entries[word]
	return e, ok, nil
}

// Close is a no-op
func (s *Static) Close() error { return nil }

// Len is the number of entries
func (s *Static) Len() int { return len(s.entries) }
