package httpkit_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/platform/config"
	perr "chatlens/internal/platform/errors"
	pnet "chatlens/internal/platform/net"
	phttp "chatlens/internal/platform/net/http"
	"chatlens/internal/platform/net/middleware"

	"github.com/go-chi/chi/v5"
)

func do(h http.Handler, method, path, token string) (*httptest.ResponseRecorder, httpkit.Envelope) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env httpkit.Envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

// api mounts a small v1 tree: an open meta route and protected analyses
func api(t *testing.T, p middleware.AuthPort) http.Handler {
	t.Helper()
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	httpkit.MountAPIV1(r, httpkit.CommonStack(config.New().Prefix("CHATLENS_TEST_")), func(v1 httpkit.Router) {
		httpkit.Get(v1, "/meta/version", func(*http.Request) (any, error) { return "1.0.0", nil })
		httpkit.Protected(v1, p, func(pr httpkit.Router) {
			pr.Route("/analyses", func(a httpkit.Router) {
				httpkit.Get(a, "/{chatID}", func(r *http.Request) (any, error) {
					if pnet.ChatID(r.Context()) != "" && pnet.ChatID(r.Context()) != chi.URLParam(r, "chatID") {
						return nil, perr.Forbiddenf("token is scoped to another chat")
					}
					return map[string]string{"client": pnet.ClientID(r.Context())}, nil
				})
				httpkit.Post(a, "/jobs", func(*http.Request) (any, error) {
					return httpkit.Created(map[string]string{"job_id": "j1"}), nil
				})
				httpkit.Get(a, "/", func(*http.Request) (any, error) {
					return httpkit.List([]string{"a1", "a2"}, 2, 10), nil
				})
				httpkit.Get(a, "/boom/panic", func(*http.Request) (any, error) { panic("nil segment") })
			})
		})
	})
	return m
}

func tokens(tok string) (string, string, error) {
	switch tok {
	case "ops":
		return "ops-dash", "", nil
	case "scoped":
		return "widget", "c1", nil
	}
	return "", "", errors.New("no such token")
}

func TestStack(t *testing.T) {
	h := api(t, httpkit.TokenFunc(tokens))

	cases := []struct {
		name, method, path, token string
		code                      int
		errCode                   perr.ErrorCode
	}{
		{"open route", http.MethodGet, "/api/v1/meta/version", "", 200, 0},
		{"no token", http.MethodGet, "/api/v1/analyses/c1", "", 401, perr.ErrorCodeUnauthorized},
		{"bad scheme", http.MethodGet, "/api/v1/analyses/c1", "Basic ops", 401, perr.ErrorCodeUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/analyses/c1", "Bearer nope", 401, perr.ErrorCodeUnauthorized},
		{"full token", http.MethodGet, "/api/v1/analyses/c9", "Bearer ops", 200, 0},
		{"scoped token own chat", http.MethodGet, "/api/v1/analyses/c1", "bearer  scoped", 200, 0},
		{"scoped token other chat", http.MethodGet, "/api/v1/analyses/c9", "Bearer scoped", 403, perr.ErrorCodeForbidden},
		{"created", http.MethodPost, "/api/v1/analyses/jobs", "Bearer ops", 201, 0},
		{"trailing slash", http.MethodGet, "/api/v1/meta/version/", "", 200, 0},
		{"panic", http.MethodGet, "/api/v1/analyses/boom/panic", "Bearer ops", 500, perr.ErrorCodePanic},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rr, env := do(h, c.method, c.path, c.token)
			if rr.Code != c.code || env.Code != c.errCode || env.StatusCode != c.code {
				t.Fatalf("%d %+v", rr.Code, env)
			}
			if env.RequestID == "" || rr.Header().Get("Cache-Control") == "" {
				t.Fatalf("stack not applied: %+v %v", env, rr.Header())
			}
		})
	}

	_, env := do(h, http.MethodGet, "/api/v1/analyses/c9", "Bearer ops")
	if data, _ := env.Data.(map[string]any); data["client"] != "ops-dash" {
		t.Fatalf("client not on context: %+v", env.Data)
	}
	_, env = do(h, http.MethodGet, "/api/v1/analyses", "Bearer ops")
	if env.Page == nil || env.Page.Count != 2 || env.Page.Limit != 10 {
		t.Fatalf("page = %+v", env.Page)
	}

	// the heartbeat answers before routing and auth
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "." {
		t.Fatalf("heartbeat = %d %q", rr.Code, rr.Body.String())
	}
}

func TestProtected_NilPort(t *testing.T) {
	h := api(t, nil)
	if rr, _ := do(h, http.MethodGet, "/api/v1/analyses/c1", ""); rr.Code != http.StatusOK {
		t.Fatalf("open analyses = %d", rr.Code)
	}
}

func TestTokenFunc(t *testing.T) {
	var got string
	p := httpkit.TokenFunc(func(tok string) (string, string, error) {
		got = tok
		return "ops-dash", "", nil
	})
	for _, h := range []string{"", "Bearer", "Bearer   ", "Token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", h)
		if _, _, err := p.Parse(req); !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
			t.Fatalf("%q: err = %v", h, err)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "  BEARER   abc.def  ")
	if client, _, err := p.Parse(req); err != nil || client != "ops-dash" || got != "abc.def" {
		t.Fatalf("client %q token %q err %v", client, got, err)
	}
}
