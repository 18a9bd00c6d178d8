// Package version reports the build version of the wifiman binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/wifiman/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/wifiman/internal/version.Commit=abc1234"
//
// Missing values are filled from the VCS stamp in the build info, then
// fall back to a dev version.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo()
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if rev := settings["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	if Version == "" {
		if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with commit and Go runtime.
func Full() string {
	return fmt.Sprintf("%s (commit: %s, %s %s/%s)", Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// ServerHeader is the value of the Server header sent by the config server.
func ServerHeader() string {
	return "wifiman/" + Version
}

// UserAgent identifies the operator client to remote devices.
func UserAgent() string {
	return "wifiman-cfg/" + Version
}
