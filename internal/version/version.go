// Package version exposes build metadata. Version, Commit and BuildDate are
// set with -ldflags "-X github.com/MrSnakeDoc/catalogd/internal/version.Version=v0.1.0".
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info is the resolved build metadata.
type Info struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
}

// Get returns the build metadata. Values not set at link time fall back to
// the VCS stamp the Go toolchain embeds.
func Get() Info {
	return resolve(Version, Commit, BuildDate, readVCS())
}

func readVCS() map[string]string {
	out := map[string]string{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			out[s.Key] = s.Value
		}
	}
	return out
}

func resolve(version, commit, date string, vcs map[string]string) Info {
	if commit == "" {
		commit = vcs["vcs.revision"]
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if commit != "" && vcs["vcs.modified"] == "true" {
			commit += "-dirty"
		}
	}
	if date == "" {
		date = vcs["vcs.time"]
	}
	return Info{
		Version:   version,
		Commit:    orNone(commit),
		BuildDate: orNone(date),
		GoVersion: runtime.Version(),
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func (i Info) String() string {
	return fmt.Sprintf("catalogd %s (commit=%s, built=%s, go=%s)", i.Version, i.Commit, i.BuildDate, i.GoVersion)
}
