// Filesystem and platform helpers for the configuration consumers.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

// configFileName is the file looked up in every candidate directory.
const configFileName = "config.yaml"

// configDirCandidates lists the per-OS directories that may hold the
// config file, in lookup order.
func configDirCandidates() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		exe, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategorySystem).
				Context("operation", "get-executable-path").
				Build()
		}
		return []string{
			filepath.Dir(exe),
			filepath.Join(home, "AppData", "Roaming", "gridscreen-go"),
		}, nil
	}

	return []string{
		filepath.Join(home, ".config", "gridscreen-go"),
		"/etc/gridscreen-go",
	}, nil
}

// GetDefaultConfigPaths returns the config directories for this OS. When one
// of them already holds a config file, only that directory is returned, so an
// existing installation keeps winning over the search order.
func GetDefaultConfigPaths() ([]string, error) {
	candidates, err := configDirCandidates()
	if err != nil {
		return nil, err
	}
	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, configFileName)); err == nil {
			return []string{dir}, nil
		}
	}
	return candidates, nil
}

// FindConfigFile returns the path of the active config file.
func FindConfigFile() (string, error) {
	dirs, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}

// GetBasePath expands environment variables in path, cleans it and makes sure
// the directory exists. Creation failures are reported on stderr and the
// cleaned path is returned anyway; the caller surfaces the real error on
// first write.
func GetBasePath(path string) string {
	base := filepath.Clean(os.ExpandEnv(path))
	if err := os.MkdirAll(base, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "cannot create directory %s: %v\n", base, err)
	}
	return base
}

// containerMarkers are files whose presence identifies a container runtime.
var containerMarkers = []string{
	"/.dockerenv",        // Docker
	"/run/.containerenv", // Podman
}

// RunningInContainer reports whether the process runs inside a container.
func RunningInContainer() bool {
	for _, marker := range containerMarkers {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	if v := os.Getenv("container"); v != "" {
		return true
	}
	// systemd-nspawn and some runtimes only show up in the cgroup path.
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	content := string(cgroup)
	return strings.Contains(content, "docker") || strings.Contains(content, "podman")
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday converts a weekday name to time.Weekday, case-insensitively.
func ParseWeekday(day string) (time.Weekday, error) {
	if d, ok := weekdays[strings.ToLower(day)]; ok {
		return d, nil
	}
	return time.Sunday, fmt.Errorf("invalid weekday: %s", day)
}
