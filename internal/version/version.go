// Package version reports the build version and checks version constraints.
package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is set at build time with -ldflags.
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info holds version information.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version information.
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("celquery version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// Check reports whether current satisfies constraint, e.g. ">= 0.1, < 1.0".
// An empty constraint is always satisfied.
func Check(current, constraint string) error {
	if constraint == "" {
		return nil
	}

	v, err := goversion.NewVersion(current)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", current, err)
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("celquery %s does not satisfy required version %s", current, constraint)
	}
	return nil
}
