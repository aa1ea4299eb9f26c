package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"chatlens/internal/platform/config"
	"chatlens/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server is a chi mux behind an http.Server
type Server struct {
	mux *chi.Mux
	srv *stdhttp.Server
}

// NewServer reads PORT, READ_TIMEOUT and WRITE_TIMEOUT from cfg. The write
// timeout has to outlast the synchronous analysis timeout
func NewServer(cfg config.Conf) *Server {
	m := chi.NewRouter()
	return &Server{
		mux: m,
		srv: &stdhttp.Server{
			Addr:              cfg.MayString("PORT", ":4000"),
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.MayDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      cfg.MayDuration("WRITE_TIMEOUT", 180*time.Second),
		},
	}
}

// Router returns a Router over the server's mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until Shutdown; a clean shutdown returns nil
func (s *Server) Run() error {
	logger.Named("http").Info().Str("addr", s.srv.Addr).Msg("http listening")
	if err := s.srv.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in flight requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
