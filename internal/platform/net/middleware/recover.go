package middleware

import (
	"net/http"
	"runtime/debug"

	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/logger"
	pnet "chatlens/internal/platform/net"
)

// RecoverJSON turns a panic into a 500 envelope and logs it with its stack.
// http.ErrAbortHandler is re-raised so the server drops the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			reqID := pnet.RequestID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			status, body := pnet.Error(perr.PanicErrf("internal error"), reqID)
			pnet.WriteJSON(w, status, body)
		}()
		next.ServeHTTP(w, r)
	})
}
