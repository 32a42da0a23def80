package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestWithBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-10-01T09:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "GOOS", Value: "linux"},
	}

	tests := []struct {
		name     string
		info     Info
		expected Info
	}{
		{
			name: "fills unknown values",
			info: Info{Version: "dev", GitCommit: "unknown", BuildTime: "unknown"},
			expected: Info{
				Version: "dev", GitCommit: "0123456789abcdef", BuildTime: "2026-10-01T09:00:00Z", Modified: true,
			},
		},
		{
			name: "keeps stamped values",
			info: Info{Version: "1.2.0", GitCommit: "abc1234", BuildTime: "2026-10-02T00:00:00Z"},
			expected: Info{
				Version: "1.2.0", GitCommit: "abc1234", BuildTime: "2026-10-02T00:00:00Z", Modified: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.withBuildSettings(settings))
		})
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "0123456789abcdef", BuildTime: "2026-10-01T09:00:00Z", GoVersion: "go1.25.1"}
	assert.Equal(t, "skillcomposer 1.0.0 (0123456, built 2026-10-01T09:00:00Z, go1.25.1)", info.String())

	info.Modified = true
	info.GitCommit = "abc"
	assert.Equal(t, "skillcomposer 1.0.0 (abc, built 2026-10-01T09:00:00Z, go1.25.1) dirty", info.String())
}

func TestInfo_JSON(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "abc123", BuildTime: "2026-10-01T09:00:00Z", GoVersion: "go1.25.1"}

	out, err := info.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{
  "version": "1.0.0",
  "gitCommit": "abc123",
  "buildTime": "2026-10-01T09:00:00Z",
  "goVersion": "go1.25.1"
}`, out)
}
