// Package migrations embeds the schema and applies it. Every statement is
// idempotent so Apply can run on each boot
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"chatlens/internal/platform/logger"
	"chatlens/internal/platform/store"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Postgres applies the postgres schema
func Postgres(ctx context.Context, q store.RowQuerier) error {
	return apply(ctx, "postgres", func(ctx context.Context, stmt string, args ...any) error {
		_, err := q.Exec(ctx, stmt, args...)
		return err
	})
}

// Clickhouse applies the clickhouse schema. The seam must implement store.Execer
func Clickhouse(ctx context.Context, ch store.Clickhouse) error {
	ex, ok := ch.(store.Execer)
	if !ok {
		return fmt.Errorf("migrations: clickhouse seam %T cannot exec", ch)
	}
	return apply(ctx, "clickhouse", ex.Exec)
}

// Apply runs the postgres schema and, when st.CH is set, the clickhouse one
func Apply(ctx context.Context, st *store.Store) error {
	if st.PG != nil {
		if err := Postgres(ctx, st.PG); err != nil {
			return err
		}
	}
	if st.CH != nil {
		return Clickhouse(ctx, st.CH)
	}
	return nil
}

func apply(ctx context.Context, dir string, exec func(ctx context.Context, stmt string, args ...any) error) error {
	names, err := fs.Glob(files, dir+"/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return err
		}
		for _, stmt := range Statements(string(body)) {
			if err := exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrations: %s: %w", name, err)
			}
		}
		logger.C(ctx).Debug().Str("file", name).Msg("migration applied")
	}
	return nil
}

// Statements splits a file on terminating semicolons
func Statements(sql string) []string {
	var out []string
	for _, part := range strings.Split(sql, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
