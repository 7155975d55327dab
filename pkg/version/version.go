// Package version exposes the application version derived from build
// metadata. Go 1.18+ embeds VCS info into the binary via
// runtime/debug.BuildInfo, so no -ldflags are required.
package version

import "runtime/debug"

// AppName is the application name used in version strings.
const AppName = "aroundme"

// GitCommit is the short git commit hash from build info, or "dev" when
// build info is unavailable (e.g. `go test`, non-git builds).
var GitCommit = initGitCommit()

// Version is the full version string, e.g. "aroundme/a3f8c2d1".
var Version = AppName + "/" + GitCommit

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}
