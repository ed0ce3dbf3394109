package version

import (
	"bytes"
	"encoding/json"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: settings}, true
	}
	t.Cleanup(func() { readBuildInfo = orig })
}

func withLdflags(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	v, c, b := Version, Commit, BuildTime
	Version, Commit, BuildTime = version, commit, buildTime
	t.Cleanup(func() { Version, Commit, BuildTime = v, c, b })
}

func TestFallsBackToBuildInfo(t *testing.T) {
	withLdflags(t, "", "", "")
	withBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
		debug.BuildSetting{Key: "vcs.time", Value: "2024-05-02T12:00:00Z"},
	)

	assert.Equal(t, "dev", getVersion())
	assert.Equal(t, "012345678", getCommit())
	assert.Equal(t, "2024-05-02T12:00:00Z (commit time)", getBuildTimeDisplay())
}

func TestLdflagsWin(t *testing.T) {
	withLdflags(t, "v1.2.0-dirty", "abcdef0123456", "2024-06-01T08:30:00Z")
	withBuildInfo(t, debug.BuildSetting{Key: "vcs.revision", Value: "ffffffffffff"})

	assert.Equal(t, "v1.2.0-dirty", getVersion())
	assert.Equal(t, "abcdef012", getCommit())
	assert.Equal(t, "2024-06-01T08:30:00Z (build time)", getBuildTimeDisplay())
}

func TestUnknownBuildTime(t *testing.T) {
	withLdflags(t, "", "", "not-a-time")
	withBuildInfo(t)
	assert.Equal(t, "unknown", getBuildTimeDisplay())
}

func TestVersionCmd(t *testing.T) {
	withLdflags(t, "v0.3.0", "deadbeef", "")

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--output", "json"})
	require.NoError(t, cmd.Execute())

	var info versionInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, "v0.3.0", info.Version)
	assert.Equal(t, "deadbeef", info.GitCommit)

	buf.Reset()
	cmd = NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), VersionLabel)
	assert.Contains(t, buf.String(), "v0.3.0")

	cmd = NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"-o", "yaml"})
	require.Error(t, cmd.Execute())
}
