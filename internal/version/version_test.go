package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func setLDFlags(t *testing.T, version, commit, date string) {
	t.Helper()
	origV, origC, origD := Version, Commit, Date
	Version, Commit, Date = version, commit, date
	t.Cleanup(func() { Version, Commit, Date = origV, origC, origD })
}

func TestGetInfo(t *testing.T) {
	installed := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-09-30T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name    string
		ldflags [3]string
		bi      *debug.BuildInfo
		want    Info
	}{
		{
			name:    "release build keeps ldflags",
			ldflags: [3]string{"1.2.0", "feedface", "2026-10-01"},
			bi:      installed,
			want:    Info{Version: "1.2.0", Commit: "feedface", Date: "2026-10-01", Modified: true},
		},
		{
			name:    "go install fills from build info",
			ldflags: [3]string{"dev", "unknown", "unknown"},
			bi:      installed,
			want:    Info{Version: "v0.4.0", Commit: "0123456789abcdef", Date: "2026-09-30T12:00:00Z", Modified: true},
		},
		{
			name:    "devel module version is ignored",
			ldflags: [3]string{"dev", "unknown", "unknown"},
			bi:      &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want:    Info{Version: "dev", Commit: "unknown", Date: "unknown"},
		},
		{
			name:    "no build info",
			ldflags: [3]string{"dev", "unknown", "unknown"},
			want:    Info{Version: "dev", Commit: "unknown", Date: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setLDFlags(t, tt.ldflags[0], tt.ldflags[1], tt.ldflags[2])
			stubBuildInfo(t, tt.bi)

			tt.want.GoVersion = runtime.Version()
			tt.want.Platform = runtime.GOOS + "/" + runtime.GOARCH
			assert.Equal(t, tt.want, GetInfo())
		})
	}
}

func TestInfoUserAgent(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"short commit", Info{Version: "1.2.3", Commit: "abc", Platform: "linux/amd64"}, "memora-cli/1.2.3 (abc; linux/amd64)"},
		{"long commit is cut", Info{Version: "1.2.3", Commit: "abc123def456", Platform: "linux/amd64"}, "memora-cli/1.2.3 (abc123de; linux/amd64)"},
		{"modified tree", Info{Version: "dev", Commit: "abc123def456", Modified: true, Platform: "darwin/arm64"}, "memora-cli/dev (abc123de-dirty; darwin/arm64)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.UserAgent())
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "1.2.3", Commit: "abc123def456", Date: "2026-10-01", GoVersion: "go1.24.6", Platform: "linux/amd64"}
	assert.Equal(t, "Memora 1.2.3 (abc123de) built 2026-10-01 with go1.24.6 for linux/amd64", info.String())
	assert.Equal(t, "1.2.3", info.Short())
}
