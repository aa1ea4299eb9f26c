package middleware

import (
	"net/http"

	"chatlens/internal/platform/logger"
	pnet "chatlens/internal/platform/net"
)

// AuthPort resolves the caller of a request
type AuthPort interface {
	// Parse returns the client id and, for scoped tokens, the chat id
	Parse(r *http.Request) (clientID string, chatID string, err error)
}

// Auth rejects requests p cannot resolve with the error envelope. Accepted
// requests carry the client and chat scope on their context and logger.
// A nil p passes everything through
func Auth(p AuthPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if p == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := pnet.RequestID(r.Context())
			clientID, chatID, err := p.Parse(r)
			if err != nil {
				logger.C(r.Context()).Debug().Err(err).Msg("auth rejected")
				status, body := pnet.Error(err, reqID)
				pnet.WriteJSON(w, status, body)
				return
			}
			ctx := pnet.WithRequest(pnet.WithClient(r.Context(), clientID), "", chatID)
			ctx = logger.With(logger.With(ctx, "client_id", clientID), "chat_id", chatID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
