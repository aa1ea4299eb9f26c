// Package swaggerkit serves the swagger UI and the API document. Builds
// with the swag tag embed the generated document; others serve a skeleton
package swaggerkit

import (
	"net/http"

	phttp "chatlens/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount serves the UI under /api/docs when enabled. secured adds the
// bearer scheme to the document
func Mount(r phttp.Router, enabled, secured bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveSpec(docReader, secured))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
