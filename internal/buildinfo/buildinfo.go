// Package buildinfo reports the macrohook version stamped at link time or
// recorded by the Go toolchain.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/offlinefirst/macrohook/internal/buildinfo.version=v1.2.3".
var (
	version = "dev"
	commit  = ""
)

var readBuildInfo = debug.ReadBuildInfo

// SetVersion overrides the reported version. Empty values are ignored.
func SetVersion(v string) {
	if v = strings.TrimSpace(v); v == "" {
		return
	}
	version = v
}

// Version returns the stamped version, the module version, or "dev".
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Commit returns the short VCS revision, with a "-dirty" suffix for modified trees.
func Commit() string {
	if commit != "" {
		return commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	return revision
}

// Describe joins Version and Commit for display.
func Describe() string {
	if c := Commit(); c != "" {
		return Version() + " " + c
	}
	return Version()
}
