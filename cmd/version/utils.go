package version

import (
	"runtime/debug"
	"strings"
	"time"
)

// These variables can be overridden at build time with ldflags
var (
	Version   string // -X github.com/trufnetwork/credit-attestation/cmd/version.Version=...
	Commit    string // -X github.com/trufnetwork/credit-attestation/cmd/version.Commit=...
	BuildTime string // -X github.com/trufnetwork/credit-attestation/cmd/version.BuildTime=...
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

func buildSetting(key string) string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// getVersion returns the ldflags version if set, otherwise the main module version
func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// getCommit returns the commit (short form), from ldflags or the embedded VCS info
func getCommit() string {
	commit := Commit
	if commit == "" {
		commit = buildSetting("vcs.revision")
	}

	// Return short form (9 chars) for readability
	const shortHashLength = 9
	if len(commit) > shortHashLength {
		return commit[:shortHashLength]
	}
	return commit
}

func isDirty() bool {
	if Version != "" {
		return strings.HasSuffix(Version, "dirty")
	}
	return buildSetting("vcs.modified") == "true"
}

// getBuildTime returns the ldflags build time if set, otherwise the commit time
func getBuildTime() time.Time {
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			return t
		}
	}
	if t, err := time.Parse(time.RFC3339, buildSetting("vcs.time")); err == nil {
		return t
	}
	return time.Time{}
}

// getBuildTimeDisplay returns a formatted build time with context about whether it's commit or build time
func getBuildTimeDisplay() string {
	buildTime := getBuildTime()
	if buildTime.IsZero() {
		return "unknown"
	}

	// An ldflags build time on a dirty tree is the build time; otherwise it is the commit time.
	if BuildTime != "" && isDirty() {
		return buildTime.Format(time.RFC3339) + " (build time)"
	}
	return buildTime.Format(time.RFC3339) + " (commit time)"
}
