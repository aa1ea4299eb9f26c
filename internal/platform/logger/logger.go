// Package logger holds the process wide zerolog logger and the per request or
// per job child loggers carried on contexts
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project logging type
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	// Level is a zerolog level name; unknown names mean debug
	Level string
	// Format is json or console
	Format string
	// Service is stamped on every line, e.g. chatlens-worker
	Service string
	Writer  io.Writer
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_SERVICE. It skips the config
// package so config can log through this one
func FromEnv(service string) Options {
	env := func(k, def string) string {
		if v := strings.TrimSpace(os.Getenv("LOG_" + k)); v != "" {
			return v
		}
		return def
	}
	return Options{
		Level:   env("LEVEL", "debug"),
		Format:  env("FORMAT", "console"),
		Service: env("SERVICE", service),
	}
}

var (
	once sync.Once
	root zerolog.Logger
)

// Init builds the root logger. Only the first call, or the first Get, counts
func Init(opt Options) {
	once.Do(func() { root = build(opt) })
}

func build(opt Options) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opt.Level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.DebugLevel
	}
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.EqualFold(opt.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	c := zerolog.New(w).Level(lvl).With().Timestamp()
	if opt.Service != "" {
		c = c.Str("service", opt.Service)
	}
	return c.Logger()
}

// Get returns the root logger
func Get() *Logger {
	Init(FromEnv(""))
	return &root
}

// Named returns a root child tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// C returns the logger carried by ctx, or the root logger
func C(ctx context.Context) *Logger {
	if ctx.Value(ctxMarker{}) != nil {
		return zerolog.Ctx(ctx)
	}
	return Get()
}

// ctxMarker tells a logger placed by With from zerolog's disabled default
type ctxMarker struct{}

// With returns ctx carrying C(ctx) plus key=value. Empty values are skipped
func With(ctx context.Context, key, value string) context.Context {
	if value == "" {
		return ctx
	}
	l := C(ctx).With().Str(key, value).Logger()
	return context.WithValue(l.WithContext(ctx), ctxMarker{}, true)
}

// WithRequest is With for the request id and the chat a token is scoped to
func WithRequest(ctx context.Context, reqID, chatID string) context.Context {
	return With(With(ctx, "request_id", reqID), "chat_id", chatID)
}
