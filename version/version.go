// Package version reports the build of lombridge and the protocol it speaks.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set with -ldflags "-X github.com/grovetools/lombridge/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Protocol names the wire format revision. Hosts and clients with different
// values may disagree on command parameters.
const Protocol = "1"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Protocol  string `json:"protocol"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information of this binary.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Protocol:  Protocol,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// UserAgent identifies lombridge in HTTP requests to the host gateway.
func UserAgent() string {
	return fmt.Sprintf("lombridge/%s (protocol %s; %s)", Version, Protocol, runtime.GOOS)
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version:    %s\n", i.Version)
	fmt.Fprintf(&b, "Commit:     %s\n", i.Commit)
	fmt.Fprintf(&b, "Built:      %s\n", i.BuildDate)
	fmt.Fprintf(&b, "Protocol:   %s\n", i.Protocol)
	fmt.Fprintf(&b, "Go:         %s\n", i.GoVersion)
	fmt.Fprintf(&b, "Platform:   %s", i.Platform)
	return b.String()
}
