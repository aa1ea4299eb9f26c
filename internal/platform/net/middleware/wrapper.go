// Package middleware adapts chi's middleware for the API and adds the
// request log, bearer auth and panic handling
package middleware

import (
	"net/http"
	"time"

	pstrings "chatlens/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

func RequestID() func(http.Handler) http.Handler { return chimw.RequestID }

func RealIP() func(http.Handler) http.Handler { return chimw.RealIP }

// Timeout cancels the request context after d. Analyses check their
// context between messages, so a cancelled request stops the engine
func Timeout(d time.Duration) func(http.Handler) http.Handler { return chimw.Timeout(d) }

func NoCache() func(http.Handler) http.Handler { return chimw.NoCache }

// Compress gzips responses; stored analyses compress well
func Compress(level int) func(http.Handler) http.Handler {
	c := chimw.NewCompressor(level, "application/json")
	return c.Handler
}

func StripSlashes() func(http.Handler) http.Handler { return chimw.StripSlashes }

// ThrottleBacklog lets limit synchronous analyses run with backlog more
// waiting up to wait; the rest get 429
func ThrottleBacklog(limit, backlog int, wait time.Duration) func(http.Handler) http.Handler {
	return chimw.ThrottleBacklog(limit, backlog, wait)
}

// Heartbeat answers GET path with 200 before routing, for load balancers
func Heartbeat(path string) func(http.Handler) http.Handler { return chimw.Heartbeat(path) }

// CORS lets browser dashboards call the API. No origins means any
func CORS(origins ...string) func(http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: pstrings.IfEmpty(origins, []string{"*"}),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}
