// Package misc provides program identification helpers shared by all
// binaries in the module.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "csb"

// set by the build with -ldflags "-X csb/misc.version=..."
var version = ""

var buildOnce = sync.OnceValues(func() (string, string) {
	ver, hash := "unknown", "unknown"
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			ver = bi.Main.Version
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				hash = s.Value
			}
		}
	}
	if version != "" {
		ver = version
	}
	return ver, hash
})

func GetAppName() string {
	return appName
}

func GetVersion() string {
	ver, _ := buildOnce()
	return ver
}

func GetGitHash() string {
	_, hash := buildOnce()
	return hash
}
