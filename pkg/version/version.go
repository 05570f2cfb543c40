// Package version exposes build metadata injected with -ldflags.
package version

import "github.com/Masterminds/semver/v3"

// Set at build time:
//
//	go build -ldflags "-X github.com/rshade/fluxi/pkg/version.version=v0.3.0 \
//	  -X github.com/rshade/fluxi/pkg/version.gitCommit=$(git rev-parse --short HEAD)"
var (
	version   = "0.0.0-dev" //nolint:gochecknoglobals // set via ldflags
	gitCommit = ""          //nolint:gochecknoglobals // set via ldflags
)

// GetVersion returns the build version, normalized to semver when it parses.
func GetVersion() string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return version
	}
	return v.String()
}

// GetGitCommit returns the short commit hash the binary was built from, if known.
func GetGitCommit() string {
	return gitCommit
}

// String returns the version with the commit appended when known.
func String() string {
	if gitCommit == "" {
		return GetVersion()
	}
	return GetVersion() + " (" + gitCommit + ")"
}
