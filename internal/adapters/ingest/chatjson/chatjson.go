// Package chatjson reads chat exports encoded as JSON into raw messages.
//
// Three layouts are accepted, optionally gzip-compressed:
//   - a JSON array of message objects
//   - JSON lines, one message object per line (malformed lines are skipped)
//   - an envelope {"metadata": {...}, "messages": [...]}
//
// Field names vary between exporters, so each message field has aliases.
package chatjson

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chatlens/internal/core/model"
)

// Format is the detected layout
type Format string

// Layouts
const (
	FormatArray    Format = "array"
	FormatLines    Format = "jsonl"
	FormatEnvelope Format = "envelope"
)

// MaxBytes caps decompressed input
const MaxBytes = 64 << 20

var (
	timestampKeys = []string{"timestamp", "time", "date", "datetime", "ts", "created_at", "sent_at"}
	senderKeys    = []string{"sender", "author", "from", "user", "name", "sender_name"}
	textKeys      = []string{"text", "message", "content", "body", "msg"}
)

// ErrEmpty is returned when the input holds no JSON at all
var ErrEmpty = errors.New("chatjson: empty input")

// Export is a decoded file
type Export struct {
	Raws    []model.RawMessage
	Meta    model.Metadata
	Format  Format
	Skipped int
}

type envelope struct {
	Metadata *struct {
		ChatID       string   `json:"chat_id"`
		Title        string   `json:"title"`
		Source       string   `json:"source"`
		Participants []string `json:"participants"`
	} `json:"metadata"`
	Messages []map[string]any `json:"messages"`
}

// Decode reads one export from r
func Decode(r io.Reader) (Export, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return Export{}, fmt.Errorf("chatjson: gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		br = bufio.NewReader(gz)
	}

	data, err := io.ReadAll(io.LimitReader(br, MaxBytes+1))
	if err != nil {
		return Export{}, fmt.Errorf("chatjson: read: %w", err)
	}
	if len(data) > MaxBytes {
		return Export{}, fmt.Errorf("chatjson: input exceeds %d bytes", MaxBytes)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 {
		return Export{}, ErrEmpty
	}

	switch data[0] {
	case '[':
		var items []map[string]any
		if err := unmarshal(data, &items); err != nil {
			return Export{}, fmt.Errorf("chatjson: array: %w", err)
		}
		return Export{Raws: records(items), Format: FormatArray}, nil
	case '{':
		var env envelope
		if err := unmarshal(data, &env); err == nil && env.Messages != nil {
			return fromEnvelope(env), nil
		}
		return lines(data)
	}
	return Export{}, fmt.Errorf("chatjson: unexpected leading byte %q", data[0])
}

// DecodeFile reads path. The chat id defaults to the file name without
// extensions
func DecodeFile(path string) (Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return Export{}, err
	}
	defer func() { _ = f.Close() }()

	ex, err := Decode(f)
	if err != nil {
		return Export{}, err
	}
	if ex.Meta.ChatID == "" {
		base := filepath.Base(path)
		for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
			base = strings.TrimSuffix(base, ext)
		}
		ex.Meta.ChatID = base
	}
	return ex, nil
}

func fromEnvelope(env envelope) Export {
	ex := Export{Raws: records(env.Messages), Format: FormatEnvelope}
	if md := env.Metadata; md != nil {
		ex.Meta = model.Metadata{
			ChatID:       md.ChatID,
			Source:       md.Source,
			Participants: md.Participants,
		}
		if ex.Meta.ChatID == "" {
			ex.Meta.ChatID = md.Title
		}
	}
	if ex.Meta.Source == "" {
		ex.Meta.Source = "json"
	}
	return ex
}

func lines(data []byte) (Export, error) {
	ex := Export{Format: FormatLines, Meta: model.Metadata{Source: "json"}}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), MaxBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var item map[string]any
		if err := unmarshal(line, &item); err != nil {
			ex.Skipped++
			continue
		}
		ex.Raws = append(ex.Raws, record(item))
	}
	if err := sc.Err(); err != nil {
		return Export{}, fmt.Errorf("chatjson: lines: %w", err)
	}
	if len(ex.Raws) == 0 {
		return Export{}, fmt.Errorf("chatjson: no decodable lines (%d skipped)", ex.Skipped)
	}
	return ex, nil
}

func records(items []map[string]any) []model.RawMessage {
	out := make([]model.RawMessage, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, record(it))
	}
	return out
}

func record(it map[string]any) model.RawMessage {
	var r model.RawMessage
	r.Timestamp = first(it, timestampKeys)
	r.Sender = str(first(it, senderKeys))
	r.Text = str(first(it, textKeys))
	return r
}

func first(it map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := it[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case map[string]any:
		// {"name": "..."} style author objects
		for _, k := range []string{"name", "display_name", "username", "id"} {
			if s, ok := x[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	return fmt.Sprint(v)
}

// unmarshal keeps numbers as json.Number so epoch timestamps survive intact
func unmarshal(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}
