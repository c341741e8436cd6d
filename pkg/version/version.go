package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version information, overridable with -ldflags "-X"
var (
	// Version of the release
	Version = "0.1.0"
	// GitCommit is the git commit that was compiled
	GitCommit = ""
	// BuildDate is the date of the build
	BuildDate = ""
	// AppName is the name of the application
	AppName = "repo-status"
	// Description of the application
	Description = "Reports unpushed, unpulled and uncommitted work across Git repositories"
)

// readBuildInfo is replaced in tests
var readBuildInfo = debug.ReadBuildInfo

// buildSettings returns the commit and date stamped by the Go toolchain, if any.
// A "-dirty" suffix is added to the commit when the tree had local changes.
func buildSettings() (commit, date string) {
	info, ok := readBuildInfo()
	if !ok {
		return "", ""
	}
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
		case "vcs.time":
			date = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if commit != "" && modified {
		commit += "-dirty"
	}
	return commit, date
}

// GetVersionInfo returns a formatted version string with additional build information
func GetVersionInfo() string {
	commit, date := GitCommit, BuildDate
	if commit == "" || date == "" {
		vcsCommit, vcsDate := buildSettings()
		if commit == "" {
			commit = vcsCommit
		}
		if date == "" {
			date = vcsDate
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s version %s", AppName, Version)
	if commit != "" {
		fmt.Fprintf(&sb, "\nGit commit: %s", commit)
	}
	if date != "" {
		fmt.Fprintf(&sb, "\nBuild date: %s", date)
	}
	fmt.Fprintf(&sb, "\nGo version: %s", runtime.Version())
	fmt.Fprintf(&sb, "\nPlatform: %s/%s", runtime.GOOS, runtime.GOARCH)

	return sb.String()
}
