package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"
)

// serveSpec decorates the document from read on every request
func serveSpec(read func() string, secured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(read()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		decorate(spec, secured)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// decorate lifts swag's swagger 2 output to the OAS 3.0 the UI renders,
// points it at /api/v1 and documents the error envelope on every operation
func decorate(spec map[string]any, secured bool) {
	if _, ok := spec["swagger"]; ok {
		delete(spec, "swagger")
		spec["openapi"] = "3.0.3"
	}
	if v, _ := spec["openapi"].(string); !strings.HasPrefix(v, "3.0") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": "/api/v1"}}
	}

	comps := child(spec, "components")
	child(comps, "schemas")["ErrorEnvelope"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "integer", "description": "machine readable error class"},
			"error":       map[string]any{"type": "string"},
			"field":       map[string]any{"type": "string", "description": "request field the error is about"},
			"request_id":  map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status", "error"},
	}
	if secured {
		child(comps, "securitySchemes")["bearer"] = map[string]any{"type": "http", "scheme": "bearer"}
	}

	paths, _ := spec["paths"].(map[string]any)
	for path, node := range paths {
		ops, _ := node.(map[string]any)
		for _, op := range ops {
			o, ok := op.(map[string]any)
			if !ok {
				continue
			}
			resp := child(o, "responses")
			for code, text := range map[string]string{"400": "Invalid request", "500": "Internal error"} {
				if _, ok := resp[code]; !ok {
					resp[code] = errorResponse(text)
				}
			}
			if secured && !strings.HasPrefix(path, "/meta") {
				resp["401"] = errorResponse("Missing or unknown bearer token")
				o["security"] = []any{map[string]any{"bearer": []any{}}}
			}
		}
	}
}

func errorResponse(text string) map[string]any {
	return map[string]any{
		"description": text,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorEnvelope"},
			},
		},
	}
}

// child returns m[key] as an object, creating it when missing
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}
