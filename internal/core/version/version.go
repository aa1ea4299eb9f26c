// Package version provides build information for the chatlens binaries and
// the engine version stamped into every analysis result.
package version

// BuildInfo holds version information about a binary build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Engine  string `json:"engine"`
}

// Engine is the semantic engine revision. Bump it whenever a threshold,
// weight or lexicon change alters analysis output for the same input
const Engine = "1.4.0"

// Info returns the build information for service. The version, commit, and
// date variables are set at build time using -ldflags.
func Info(service string) BuildInfo {
	// Set via -ldflags "-X 'chatlens/internal/core/version.version=v0.3.0'
	// -X 'chatlens/internal/core/version.commit=abcd' -X 'chatlens/internal/core/version.date=2026-10-01'"
	if service == "" {
		service = "chatlens"
	}
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
		Engine:  Engine,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
