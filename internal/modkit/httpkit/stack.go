package httpkit

import (
	"compress/flate"
	"net/http"
	"strings"
	"time"

	"chatlens/internal/platform/config"
	"chatlens/internal/platform/net/middleware"
)

// v1Prefix is where the versioned API is mounted
const v1Prefix = "/api/v1"

// CommonStack is the middleware every API route runs behind. cfg is the
// CORE_API_ scope: SLOW_MS marks slow requests in the access log,
// REQUEST_TIMEOUT bounds a request and CORS_ORIGINS is a comma separated
// allow list
func CommonStack(cfg config.Conf) []func(http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(cfg.MayString("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(time.Duration(cfg.MayInt("SLOW_MS", 2000)) * time.Millisecond),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(origins...),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat(v1Prefix + "/health"),
		middleware.StripSlashes(),
		middleware.Timeout(cfg.MayDuration("REQUEST_TIMEOUT", 150*time.Second)),
	}
}

// MountAPIV1 mounts fn's routes under v1Prefix behind mw
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, fn func(Router)) {
	r.Route(v1Prefix, func(api Router) {
		api.Use(mw...)
		fn(api)
	})
}

// Protected mounts fn's routes behind bearer auth. A nil p leaves them open
func Protected(r Router, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(g Router) {
		g.Use(middleware.Auth(p))
		fn(g)
	})
}
