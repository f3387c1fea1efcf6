// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/listing-watch/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/listing-watch/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns "<version> (<commit>)". Without ldflags the commit falls
// back to the VCS revision embedded by the go tool, when present.
func String() string {
	return Version + " (" + commit() + ")"
}

// UserAgent is sent by HTTP fetchers that do not configure their own.
func UserAgent() string {
	return "listing-watch/" + Version
}

func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return Commit
}
