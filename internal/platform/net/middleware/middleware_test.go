package middleware_test

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/logger"
	pnet "chatlens/internal/platform/net"
	"chatlens/internal/platform/net/middleware"
)

var logs bytes.Buffer

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Level: "debug", Format: "json", Writer: &logs})
	os.Exit(m.Run())
}

// lastLine decodes the last json line written to logs
func lastLine(t *testing.T) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	var out map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &out); err != nil {
		t.Fatalf("log line: %v in %q", err, logs.String())
	}
	return out
}

func envelope(t *testing.T, rr *httptest.ResponseRecorder) pnet.Envelope {
	t.Helper()
	var env pnet.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestAccessLog(t *testing.T) {
	cases := []struct {
		name   string
		status int
		sleep  time.Duration
		level  string
	}{
		{"ok", http.StatusOK, 0, "info"},
		{"slow", http.StatusOK, 30 * time.Millisecond, "warn"},
		{"server error", http.StatusBadGateway, 0, "error"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			logs.Reset()
			var inner string
			h := middleware.RequestID()(middleware.AccessLog(20 * time.Millisecond)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					logger.C(r.Context()).Debug().Msg("inside")
					inner = logs.String()
					time.Sleep(c.sleep)
					w.WriteHeader(c.status)
					_, _ = w.Write([]byte("hello"))
				})))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
			req.Header.Set("X-Request-Id", "req-42")
			h.ServeHTTP(httptest.NewRecorder(), req)

			if !strings.Contains(inner, `"request_id":"req-42"`) {
				t.Fatalf("handler logger lacks request id: %q", inner)
			}
			line := lastLine(t)
			if line["level"] != c.level || line["status"] != float64(c.status) || line["bytes"] != float64(5) {
				t.Fatalf("line = %v", line)
			}
			if line["path"] != "/api/v1/analyses" || line["request_id"] != "req-42" {
				t.Fatalf("line = %v", line)
			}
		})
	}
}

type fakeAuthPort struct {
	client, chat string
	err          error
}

func (f fakeAuthPort) Parse(*http.Request) (string, string, error) { return f.client, f.chat, f.err }

func TestAuth(t *testing.T) {
	var seen *http.Request
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		logger.C(r.Context()).Info().Msg("reading analyses")
	})

	t.Run("nil port", func(t *testing.T) {
		seen = nil
		middleware.Auth(nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == nil {
			t.Fatal("request not passed through")
		}
	})

	t.Run("rejected", func(t *testing.T) {
		seen = nil
		rr := httptest.NewRecorder()
		p := fakeAuthPort{err: perr.Unauthorizedf("unknown token")}
		middleware.Auth(p)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen != nil {
			t.Fatal("rejected request reached the handler")
		}
		env := envelope(t, rr)
		if rr.Code != http.StatusUnauthorized || env.Code != perr.ErrorCodeUnauthorized || env.Error != "unknown token" {
			t.Fatalf("status %d env %+v", rr.Code, env)
		}
	})

	t.Run("scoped token", func(t *testing.T) {
		logs.Reset()
		p := fakeAuthPort{client: "dash", chat: "chat-9"}
		middleware.Auth(p)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if pnet.ClientID(seen.Context()) != "dash" || pnet.ChatID(seen.Context()) != "chat-9" {
			t.Fatalf("client %q chat %q", pnet.ClientID(seen.Context()), pnet.ChatID(seen.Context()))
		}
		if line := lastLine(t); line["client_id"] != "dash" || line["chat_id"] != "chat-9" {
			t.Fatalf("line = %v", line)
		}
	})
}

func TestRecoverJSON(t *testing.T) {
	logs.Reset()
	h := middleware.RequestID()(middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("segment index out of range")
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	env := envelope(t, rr)
	if rr.Code != http.StatusInternalServerError || env.Code != perr.ErrorCodePanic || env.RequestID != "req-1" {
		t.Fatalf("status %d env %+v", rr.Code, env)
	}
	if rr.Header().Get("X-Request-ID") != "req-1" {
		t.Fatalf("request id header missing")
	}
	// the panic value is logged, never returned
	if strings.Contains(rr.Body.String(), "segment") {
		t.Fatalf("panic leaked: %s", rr.Body.String())
	}
	if line := lastLine(t); line["panic"] != "segment index out of range" || line["stack"] == nil {
		t.Fatalf("line = %v", line)
	}

	aborted := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); !errors.Is(v.(error), http.ErrAbortHandler) {
			t.Fatalf("recovered %v", v)
		}
	}()
	aborted.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Fatal("abort was swallowed")
}

func TestCORS(t *testing.T) {
	h := middleware.CORS("https://dash.example")(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyses", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req.Header.Set("Origin", "https://elsewhere.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestCompress(t *testing.T) {
	h := middleware.Compress(flate.BestSpeed)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":"` + strings.Repeat("calm ", 1000) + `"}`))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("encoding = %q", rr.Header().Get("Content-Encoding"))
	}
}

func TestThrottleBacklog(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	h := middleware.ThrottleBacklog(1, 0, 10*time.Millisecond)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		close(started)
		<-release
	}))
	go h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	<-started

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	close(release)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
}
