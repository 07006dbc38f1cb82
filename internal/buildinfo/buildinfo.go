// Package buildinfo contains build-time metadata separate from user configuration.
package buildinfo

import "runtime"

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/tphakala/gridscreen-go/internal/buildinfo.version=v1.2.3"
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

// Info describes the running binary. It is injected at application startup
// and is not part of the configuration system.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}
}

// GetVersion returns the version string, "unknown" when unset.
func (i *Info) GetVersion() string {
	if i == nil || i.Version == "" {
		return "unknown"
	}
	return i.Version
}

// GetBuildDate returns the build date string, "unknown" when unset.
func (i *Info) GetBuildDate() string {
	if i == nil || i.BuildDate == "" {
		return "unknown"
	}
	return i.BuildDate
}

// GetCommit returns the Git commit hash, "unknown" when unset.
func (i *Info) GetCommit() string {
	if i == nil || i.Commit == "" {
		return "unknown"
	}
	return i.Commit
}

// Version returns the injected version string, "dev" for local builds.
func Version() string {
	return version
}

// Release returns the release identifier reported to telemetry,
// for example "gridscreen-go@v1.2.3".
func Release() string {
	return "gridscreen-go@" + version
}
