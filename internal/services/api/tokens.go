package api

import (
	"fmt"
	"strings"

	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/platform/config"
	perr "chatlens/internal/platform/errors"
)

// TokenPort builds bearer auth from CHATLENS_API_TOKENS, a comma separated
// list of token:client or token:client:chat entries. A chat entry limits the
// token to that chat. An empty list disables auth and returns nil
func TokenPort(cfg config.Conf) (httpkit.TokenFunc, error) {
	raw := cfg.Prefix("CHATLENS_API_").MayString("TOKENS", "")
	tokens, err := parseTokens(raw)
	if err != nil || len(tokens) == 0 {
		return nil, err
	}
	return func(tok string) (string, string, error) {
		g, ok := tokens[tok]
		if !ok {
			return "", "", perr.Unauthorizedf("unknown token")
		}
		return g.client, g.chat, nil
	}, nil
}

type grant struct{ client, chat string }

func parseTokens(raw string) (map[string]grant, error) {
	out := map[string]grant{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("CHATLENS_API_TOKENS: malformed entry %q", redact(parts[0]))
		}
		g := grant{client: parts[1]}
		if len(parts) == 3 {
			g.chat = parts[2]
		}
		if _, dup := out[parts[0]]; dup {
			return nil, fmt.Errorf("CHATLENS_API_TOKENS: duplicate token for client %q", g.client)
		}
		out[parts[0]] = g
	}
	return out, nil
}

// redact keeps token prefixes out of logs
func redact(tok string) string {
	if len(tok) <= 4 {
		return "****"
	}
	return tok[:4] + "****"
}
