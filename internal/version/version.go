package version

import (
	"fmt"
	"runtime/debug"
)

// Unknown is reported when no version metadata is available.
const Unknown = "0.0.0"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = ""
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"

	// resolved is fixed at initialization; later changes to Version are not observed.
	//nolint:gochecknoglobals // Computed once at startup.
	resolved = resolve(Version, debug.ReadBuildInfo)
)

// resolve picks the injected version, then the module version from build info, then Unknown.
func resolve(injected string, readBuildInfo func() (*debug.BuildInfo, bool)) string {
	if injected != "" {
		return injected
	}

	info, ok := readBuildInfo()
	if !ok || info == nil {
		return Unknown
	}

	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	return Unknown
}

// Short returns only the semantic version string.
func Short() string {
	return resolved
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", resolved, Commit, BuildTime)
}
