package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces dictionary keys
const DefaultKeyPrefix = "chatlens:dict:"

// Redis serves entries stored as JSON strings under prefix+word
type Redis struct {
	rdb    *redis.Client
	prefix string
	owned  bool
}

// NewRedis wraps an existing client; the caller keeps ownership
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// DialRedis parses a redis:// url and owns the resulting client
func DialRedis(url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("dictionary: parse redis url: %w", err)
	}
	r := NewRedis(redis.NewClient(opts), prefix)
	r.owned = true
	return r, nil
}

// Open pings the server
func (r *Redis) Open(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("dictionary: redis ping: %w", err)
	}
	return nil
}

// Lookup reads and decodes one entry
func (r *Redis) Lookup(ctx context.Context, word string) (Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+word).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode %q: %w", word, err)
	}
	if e.Word == "" {
		e.Word = word
	}
	return e, true, nil
}

// Put stores an entry, used to seed the dictionary
func (r *Redis) Put(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.prefix+e.Word, b, 0).Err()
}

// Close closes the client when this provider created it
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.rdb.Close()
}
