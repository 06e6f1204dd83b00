// Package version reports build information for the pyfinder binary.
package version

import (
	"fmt"
	"runtime"
)

// These variables are populated by the Go linker during the build process.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Protocol is the JSON-RPC surface revision spoken by `pyfinder server`.
// Bump it when a method, notification or payload field changes.
const Protocol = "1"

// Info holds all the versioning information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Protocol  string `json:"protocol"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information of the running binary.
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

func (i Info) String() string {
	return fmt.Sprintf(
		"pyfinder %s\n  Commit:     %s\n  Built:      %s\n  Protocol:   %s\n  Go:         %s\n  Platform:   %s",
		i.Version, i.Commit, i.BuildDate, i.Protocol, i.GoVersion, i.Platform,
	)
}
