package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "chatlens/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

const swag2 = `{
	"swagger": "2.0",
	"info": {"title": "Chatlens API", "version": "0.1.0"},
	"paths": {
		"/analyses": {"post": {"responses": {"200": {"description": "ok"}, "400": {"description": "invalid input"}}}},
		"/meta/health": {"get": {"responses": {"200": {"description": "ok"}}}}
	}
}`

func responses(spec map[string]any, path, method string) map[string]any {
	op := spec["paths"].(map[string]any)[path].(map[string]any)[method].(map[string]any)
	return op["responses"].(map[string]any)
}

func TestDecorate(t *testing.T) {
	var spec map[string]any
	if err := json.Unmarshal([]byte(swag2), &spec); err != nil {
		t.Fatal(err)
	}
	decorate(spec, true)

	if spec["openapi"] != "3.0.3" || spec["swagger"] != nil {
		t.Fatalf("version = %v / %v", spec["openapi"], spec["swagger"])
	}
	if srv := spec["servers"].([]any)[0].(map[string]any); srv["url"] != "/api/v1" {
		t.Fatalf("servers = %v", spec["servers"])
	}

	analyze := responses(spec, "/analyses", "post")
	// documented responses are kept
	if analyze["400"].(map[string]any)["description"] != "invalid input" {
		t.Fatalf("400 replaced: %v", analyze["400"])
	}
	if analyze["500"] == nil || analyze["401"] == nil {
		t.Fatalf("defaults missing: %v", analyze)
	}
	if health := responses(spec, "/meta/health", "get"); health["401"] != nil {
		t.Fatalf("meta marked secured")
	}
	comps := spec["components"].(map[string]any)
	if comps["securitySchemes"] == nil || comps["schemas"].(map[string]any)["ErrorEnvelope"] == nil {
		t.Fatalf("components = %v", comps)
	}

	open := map[string]any{"openapi": "3.1.0", "paths": map[string]any{}}
	decorate(open, false)
	if open["openapi"] != "3.0.3" || open["components"].(map[string]any)["securitySchemes"] != nil {
		t.Fatalf("open spec = %v", open)
	}
}

func TestMount(t *testing.T) {
	m := chi.NewRouter()
	Mount(phttp.AdaptChi(m), true, false)

	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	var spec map[string]any
	if rr.Code != http.StatusOK || json.Unmarshal(rr.Body.Bytes(), &spec) != nil || spec["servers"] == nil {
		t.Fatalf("doc.json = %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	if rr.Code != http.StatusPermanentRedirect {
		t.Fatalf("redirect = %d", rr.Code)
	}

	bad := httptest.NewRecorder()
	serveSpec(func() string { return "{" }, false)(bad, httptest.NewRequest(http.MethodGet, "/", nil))
	if bad.Code != http.StatusInternalServerError {
		t.Fatalf("broken document = %d", bad.Code)
	}

	off := chi.NewRouter()
	Mount(phttp.AdaptChi(off), false, false)
	rr = httptest.NewRecorder()
	off.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("disabled docs = %d", rr.Code)
	}
}
