// Package version reports how the memora binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set by ldflags in release builds.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	Modified  bool   `json:"modified,omitempty" yaml:"modified,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// GetInfo returns the ldflags values. Binaries built with `go install`
// carry no ldflags, so missing values come from the embedded build info.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func (i Info) shortCommit() string {
	c := i.Commit
	if len(c) > 8 {
		c = c[:8]
	}
	if i.Modified {
		c += "-dirty"
	}
	return c
}

func (i Info) String() string {
	return fmt.Sprintf("Memora %s (%s) built %s with %s for %s",
		i.Version, i.shortCommit(), i.Date, i.GoVersion, i.Platform)
}

// Short is the bare version.
func (i Info) Short() string {
	return i.Version
}

// UserAgent is sent on every backend and identity request.
func (i Info) UserAgent() string {
	return fmt.Sprintf("memora-cli/%s (%s; %s)", i.Version, i.shortCommit(), i.Platform)
}
