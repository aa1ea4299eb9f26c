package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"chatlens/internal/modkit"
	"chatlens/internal/modkit/repokit"
	"chatlens/internal/platform/config"
	"chatlens/internal/platform/logger"
	"chatlens/internal/platform/store"

	analysesmod "chatlens/internal/services/analyses/module"
	analyzermod "chatlens/internal/services/analyzer/module"
	"chatlens/internal/services/engine"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init(logger.FromEnv("chatlens-worker"))

	// zero flags keep the CHATLENS_WORKER_ settings
	var (
		fConc   = flag.Int("concurrency", 0, "analyses run at once")
		fBatch  = flag.Int("batch", 0, "jobs leased per poll")
		fRetry  = flag.Int("retry_base_ms", 0, "base backoff (ms) between attempts")
		fMaxAtt = flag.Int("max_attempts", 0, "attempts before a job is failed")
		fLease  = flag.Duration("lease", 0, "lease length per job")
		fID     = flag.String("id", "", "worker id recorded on leases")
	)
	flag.Parse()

	root := config.New()
	l := logger.Get()

	st, err := store.Open(context.Background(), store.FromConfig(root, "chatlens-worker"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), "chatlens-worker", st)

	eng, err := engine.New(engine.FromConfig(root))
	if err != nil {
		l.Panic().Err(err).Msg("engine.New failed")
	}
	defer func() { _ = eng.Close() }()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	analyses := analysesmod.New(deps)
	stored := modkit.MustPorts[analysesmod.Ports](analyses)

	mod := analyzermod.New(deps, eng, stored.Writer, analyzermod.Options{
		Concurrency:    *fConc,
		QueueTakeBatch: *fBatch,
		RetryBaseMs:    *fRetry,
		MaxAttempts:    *fMaxAtt,
		LeaseFor:       *fLease,
		WorkerID:       *fID,
	})
	ports := modkit.MustPorts[analyzermod.Ports](mod)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ports.Worker.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal().Err(err).Msg("analyzer worker failed")
	}
	l.Info().Msg("analyzer worker stopped")
}
