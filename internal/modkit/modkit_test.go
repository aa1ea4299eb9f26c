package modkit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatlens/internal/modkit"
	"chatlens/internal/modkit/httpkit"
	phttp "chatlens/internal/platform/net/http"
	"chatlens/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

type writerPorts struct{ Writer string }

type storage struct {
	spec modkit.Spec
}

func (s storage) Name() string { return s.spec.Name }
func (s storage) Ports() any   { return writerPorts{Writer: "pg"} }
func (s storage) MountRoutes(r httpkit.Router) {
	s.spec.Mount(r, func(rr httpkit.Router) {
		httpkit.Get(rr, "/", func(*http.Request) (any, error) { return s.spec.Name, nil })
	})
}

func TestBuild(t *testing.T) {
	s := modkit.Build(modkit.WithName("analyses"), modkit.WithPrefix(" analyses/ "), modkit.WithPorts(writerPorts{Writer: "x"}))
	if s.Name != "analyses" || s.Prefix != "/analyses" {
		t.Fatalf("spec = %+v", s)
	}
	if p, ok := s.Ports.(writerPorts); !ok || p.Writer != "x" {
		t.Fatalf("ports = %#v", s.Ports)
	}
	// later options win
	if s := modkit.Build(modkit.WithName("a"), modkit.WithName("b")); s.Name != "b" || s.Prefix != "" {
		t.Fatalf("spec = %+v", s)
	}

	if v := testkit.MustPanic(t, func() { modkit.Build(modkit.WithPrefix("/x")) }); v != "module name is required" {
		t.Fatalf("panic = %v", v)
	}
}

func TestSpecMount(t *testing.T) {
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	storage{spec: modkit.Build(modkit.WithName("meta"), modkit.WithPrefix("meta"))}.MountRoutes(r)
	r.Route("/v", func(v httpkit.Router) {
		storage{spec: modkit.Build(modkit.WithName("bare"))}.MountRoutes(v)
	})

	for path, want := range map[string]string{"/meta": `"meta"`, "/v": `"bare"`} {
		rr := httptest.NewRecorder()
		m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), want) {
			t.Fatalf("%s: %d %s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestMustPorts(t *testing.T) {
	mod := storage{spec: modkit.Build(modkit.WithName("analyses"))}
	if p := modkit.MustPorts[writerPorts](mod); p.Writer != "pg" {
		t.Fatalf("ports = %+v", p)
	}
	v := testkit.MustPanic(t, func() { modkit.MustPorts[int](mod) })
	if msg, _ := v.(string); !strings.Contains(msg, "module analyses exposes modkit_test.writerPorts, not int") {
		t.Fatalf("panic = %v", v)
	}
}
