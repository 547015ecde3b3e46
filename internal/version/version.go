// Package version carries build metadata for corpus-fetch, adapted from
// the teacher's version/version.go.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the current corpus-fetch release version.
	Version = "0.1.0"
	// GitCommit is set at build time via -ldflags.
	GitCommit = ""
	// BuildTime is set at build time via -ldflags.
	BuildTime = ""
)

// Info returns a multi-line human-readable version summary.
func Info() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("corpus-fetch v%s\n", Version))
	if GitCommit != "" {
		sb.WriteString(fmt.Sprintf("Git commit: %s\n", GitCommit))
	}
	if BuildTime != "" {
		sb.WriteString(fmt.Sprintf("Build time: %s\n", BuildTime))
	}
	sb.WriteString(fmt.Sprintf("Go version: %s\n", runtime.Version()))
	sb.WriteString(fmt.Sprintf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH))
	return sb.String()
}
