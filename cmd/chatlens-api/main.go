// @title         Chatlens API
// @version       0.1.0
// @description   Rule based chat log analysis: segments, behavior and evolution

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"chatlens/internal/modkit/repokit"
	"chatlens/internal/platform/config"
	"chatlens/internal/platform/logger"
	phttp "chatlens/internal/platform/net/http"
	"chatlens/internal/platform/store"

	"chatlens/internal/services/api"
	"chatlens/internal/services/engine"
	"chatlens/migrations"

	"github.com/joho/godotenv"
)

func main() {
	// a local .env is optional
	_ = godotenv.Load()
	logger.Init(logger.FromEnv("chatlens-api"))

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	l := logger.Get()

	// clickhouse only mirrors moments; without it the API reads them from postgres
	st, err := store.Open(context.Background(), store.FromConfig(root, "chatlens-api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), "chatlens-api", st)

	if apiCfg.MayBool("MIGRATE", false) {
		if err := migrations.Apply(context.Background(), st); err != nil {
			l.Panic().Err(err).Msg("migrations failed")
		}
		l.Info().Msg("schema up to date")
	}

	eng, err := engine.New(engine.FromConfig(root))
	if err != nil {
		l.Panic().Err(err).Msg("engine.New failed")
	}
	defer func() {
		if err := eng.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close engine")
		}
	}()

	// http server (reads CORE_API_PORT and the timeouts)
	srv := phttp.NewServer(apiCfg)

	// module options read their own prefixes off the root config
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			Engine:         eng,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Error().Err(err).Msg("http shutdown")
		}
	}()

	if err := srv.Run(); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
