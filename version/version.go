package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified"`
}

// Get returns the build information, filling gaps from the embedded VCS
// settings.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// Release reports whether this is a stamped, clean build.
func (i Info) Release() bool {
	return i.Version != "dev" && !i.Modified && !strings.HasSuffix(i.Version, "-dirty")
}

// String formats the build as "1.4.0 (abc1234, 2026-05-04T10:00:00Z)".
func (i Info) String() string {
	var details []string
	if i.Commit != "" {
		c := i.Commit
		if i.Modified {
			c += "-dirty"
		}
		details = append(details, c)
	}
	if i.BuildTime != "" {
		details = append(details, i.BuildTime)
	}
	if len(details) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(details, ", "))
}

// UserAgent identifies the service on outbound provider calls.
func UserAgent() string {
	return "stenopro/" + Version
}
