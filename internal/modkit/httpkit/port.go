package httpkit

import (
	"net/http"
	"strings"

	perr "chatlens/internal/platform/errors"
)

// TokenFunc resolves a bearer token to its client and, for chat scoped
// tokens, the chat. Its errors are reported as 401 without detail
type TokenFunc func(token string) (clientID string, chatID string, err error)

// Parse implements middleware.AuthPort over the Authorization header
func (f TokenFunc) Parse(r *http.Request) (string, string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, _ := strings.Cut(h, " ")
	tok = strings.TrimSpace(tok)
	if !strings.EqualFold(scheme, "bearer") || tok == "" {
		return "", "", perr.Unauthorizedf("missing bearer token")
	}
	client, chat, err := f(tok)
	if err != nil || client == "" {
		return "", "", perr.Unauthorizedf("invalid bearer token")
	}
	return client, chat, nil
}
