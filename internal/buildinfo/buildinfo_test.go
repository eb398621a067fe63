package buildinfo

import (
	"runtime/debug"
	"testing"
)

func stubBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	origRead, origVersion, origCommit := readBuildInfo, version, commit
	t.Cleanup(func() {
		readBuildInfo, version, commit = origRead, origVersion, origCommit
	})
	version, commit = "dev", ""
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
}

func TestVersionPrefersStampedValue(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}})
	if got := Version(); got != "v0.3.0" {
		t.Fatalf("expected module version, got %q", got)
	}
	SetVersion("  ")
	if got := Version(); got != "v0.3.0" {
		t.Fatalf("blank SetVersion changed version to %q", got)
	}
	SetVersion("v1.0.0")
	if got := Version(); got != "v1.0.0" {
		t.Fatalf("expected stamped version, got %q", got)
	}
}

func TestVersionIgnoresDevelModule(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if got := Version(); got != "dev" {
		t.Fatalf("expected dev, got %q", got)
	}
}

func TestDescribeIncludesRevision(t *testing.T) {
	cases := map[string]struct {
		settings []debug.BuildSetting
		want     string
	}{
		"clean": {
			settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
			want:     "dev 0123456789ab",
		},
		"dirty": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: "dev abc123-dirty",
		},
		"no vcs": {want: "dev"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			stubBuildInfo(t, &debug.BuildInfo{Settings: tc.settings})
			if got := Describe(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCommitWithoutBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)
	if got := Commit(); got != "" {
		t.Fatalf("expected empty commit, got %q", got)
	}
}
