// Package version provides build-time version information for mcsstheme.
//
// Version, Commit, Date, Branch, and TreeState are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/mcsstheme/internal/version.Version=x.y.z \
//	                   -X github.com/jmylchreest/mcsstheme/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/mcsstheme/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Builds without ldflags fall back to the VCS stamp recorded by the Go toolchain.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build-time variables injected via ldflags.
var (
	// Version is the semantic version following SemVer 2.0.0.
	// Release format: "1.2.3"
	// Prerelease format: "1.2.3-SNAPSHOT.abc1234" (next patch + SNAPSHOT + short SHA)
	Version = "dev"

	// Commit is the full git commit SHA.
	Commit = "unknown"

	// Date is the build timestamp in RFC3339 format.
	Date = "unknown"

	// Branch is the git branch the binary was built from.
	Branch = "unknown"

	// TreeState is "clean" or "dirty".
	TreeState = "unknown"
)

// Runtime constants.
var (
	// GoVersion is the Go runtime version.
	GoVersion = runtime.Version()
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "mcsstheme"

const shortSHALen = 8

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildSettings(bi.Settings)
	}
}

// applyBuildSettings fills unset variables from the toolchain VCS stamp.
func applyBuildSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" && s.Value != "" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" && s.Value != "" {
				Date = s.Value
			}
		case "vcs.modified":
			if TreeState == "unknown" {
				if s.Value == "true" {
					TreeState = "dirty"
				} else {
					TreeState = "clean"
				}
			}
		}
	}
}

// Info contains structured version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	CommitSHA string `json:"commit_sha"`
	Date      string `json:"date"`
	Branch    string `json:"branch"`
	TreeState string `json:"tree_state"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		CommitSHA: shortSHA(),
		Date:      Date,
		Branch:    Branch,
		TreeState: TreeState,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// shortSHA returns the truncated commit, or "" when the commit is unknown.
func shortSHA() string {
	if Commit == "unknown" || len(Commit) < shortSHALen {
		return ""
	}
	return Commit[:shortSHALen]
}

// commitLabel is the short SHA with a trailing "*" for dirty trees.
func commitLabel() string {
	sha := shortSHA()
	if sha != "" && TreeState == "dirty" {
		return sha + "*"
	}
	return sha
}

// String returns a human-readable version string.
func String() string {
	info := GetInfo()
	label := commitLabel()
	if label == "" {
		return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, info.Version, info.GoVersion, info.Platform)
	}

	parts := []string{"commit: " + label, "built: " + info.Date}
	if Branch != "" && Branch != "unknown" {
		parts = append(parts, "branch: "+Branch)
	}
	parts = append(parts, info.GoVersion, info.Platform)
	return fmt.Sprintf("%s version %s (%s)", ApplicationName, info.Version, strings.Join(parts, ", "))
}

// Short returns a short version string suitable for CLI --version output.
// The application name is omitted since cobra prefixes it.
func Short() string {
	if label := commitLabel(); label != "" {
		return fmt.Sprintf("%s (%s)", Version, label)
	}
	return Version
}

// JSON returns the version information as an indented JSON document.
func JSON() string {
	data, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// UserAgent returns a User-Agent style product token, also used as the
// HTTP Server header.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ApplicationName, Version)
}
