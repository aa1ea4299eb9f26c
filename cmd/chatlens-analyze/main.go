// Command chatlens-analyze runs the engine over exported chat files and
// prints the results as JSON. Nothing is stored
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"chatlens/internal/adapters/ingest/chatjson"
	"chatlens/internal/core/model"
	"chatlens/internal/core/pipeline"
	"chatlens/internal/platform/config"
	"chatlens/internal/platform/logger"
	"chatlens/internal/services/engine"

	"github.com/joho/godotenv"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// fileResult is one line of output
type fileResult struct {
	File   string        `json:"file"`
	Format string        `json:"format,omitempty"`
	Skip   int           `json:"skipped_records,omitempty"`
	Error  string        `json:"error,omitempty"`
	Result *model.Result `json:"result,omitempty"`
}

func main() {
	_ = godotenv.Load()
	os.Exit(run())
}

func run() int {
	var (
		fNarrate  = flag.Bool("narrate", false, "attach a narrative summary (needs OPENAI_API_KEY)")
		fWorkers  = flag.Int("workers", 0, "files analyzed at once (default CHATLENS_ENGINE_WORKERS)")
		fTaxonomy = flag.String("taxonomy", "", "business or relationship")
		fOut      = flag.String("out", "", "write to this file instead of stdout")
		fPretty   = flag.Bool("pretty", false, "indent output")
	)
	flag.Parse()
	files := flag.Args()

	l := logger.Named("chatlens-analyze")
	if len(files) == 0 {
		l.Error().Msg("usage: chatlens-analyze [flags] export.json [more.json ...]")
		return 2
	}

	if *fWorkers > 0 {
		mustSetEnv("CHATLENS_ENGINE_WORKERS", fmt.Sprintf("%d", *fWorkers))
	}
	mustSetEnv("CHATLENS_ENGINE_TAXONOMY", *fTaxonomy)

	eng, err := engine.New(engine.FromConfig(config.New()))
	if err != nil {
		l.Error().Err(err).Msg("engine.New failed")
		return 1
	}
	defer func() { _ = eng.Close() }()

	out := make([]fileResult, len(files))
	convs := make([]pipeline.Conversation, 0, len(files))
	idx := make([]int, 0, len(files))
	for i, f := range files {
		out[i].File = f
		ex, err := chatjson.DecodeFile(f)
		if err != nil {
			out[i].Error = err.Error()
			l.Warn().Err(err).Str("file", f).Msg("skipping unreadable export")
			continue
		}
		out[i].Format, out[i].Skip = string(ex.Format), ex.Skipped
		convs = append(convs, pipeline.Conversation{Raws: ex.Raws, Meta: ex.Meta})
		idx = append(idx, i)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for j, o := range eng.AnalyzeMany(ctx, convs, *fNarrate) {
		i := idx[j]
		if o.Err != nil {
			out[i].Error = o.Err.Error()
			continue
		}
		res := o.Result
		out[i].Result = &res
		l.Info().
			Str("file", files[i]).
			Int("messages", res.Metadata.MessageCount).
			Int("segments", res.Metadata.SegmentCount).
			Str("health", string(res.Evolution.Health)).
			Msg("analyzed")
	}
	failed := 0
	for _, r := range out {
		if r.Error != "" {
			failed++
		}
	}

	var w io.Writer = os.Stdout
	if *fOut != "" {
		fh, err := os.Create(*fOut)
		if err != nil {
			l.Error().Err(err).Msg("create output")
			return 1
		}
		defer func() { _ = fh.Close() }()
		w = fh
	}
	enc := json.NewEncoder(w)
	if *fPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		l.Error().Err(err).Msg("write output")
		return 1
	}

	if failed > 0 {
		l.Error().Int("failed", failed).Int("total", len(files)).Msg("some files were not analyzed")
		return 1
	}
	return 0
}
