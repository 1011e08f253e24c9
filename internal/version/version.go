// Package version reports the build of the running binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X lightshade/internal/version.GitCommit=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version with its build metadata. When no commit was
// injected, the VCS revision recorded by the Go toolchain is used.
func String() string {
	commit, built := GitCommit, BuildTime
	if commit == "unknown" {
		if rev, at, ok := vcsInfo(); ok {
			commit, built = rev, at
		}
	}
	return fmt.Sprintf("lightshade v%s (commit %s, built %s)", Version, commit, built)
}

func vcsInfo() (rev, at string, ok bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}
	at = "unknown"
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
		case "vcs.time":
			at = s.Value
		}
	}
	return rev, at, rev != ""
}
