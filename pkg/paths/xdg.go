// Package paths provides XDG-compliant path resolution for pyfinder.
//
// Resolution order:
// 1. PYFINDER_HOME (portable root) → $PYFINDER_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/pyfinder
// 3. Platform defaults → ~/.config/pyfinder, ~/.local/state/pyfinder
package paths

import (
	"os"
	"path/filepath"
)

const appName = "pyfinder"

// baseDir resolves one XDG base directory. sub is the PYFINDER_HOME child,
// xdgVar the XDG override and fallback the home-relative default.
func baseDir(sub, xdgVar string, fallback ...string) string {
	if home := os.Getenv("PYFINDER_HOME"); home != "" {
		return filepath.Join(home, sub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
}

// ConfigDir returns the directory holding pyfinder.toml / pyfinder.yml.
func ConfigDir() string {
	return baseDir("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the directory used for log files.
func StateDir() string {
	return baseDir("state", "XDG_STATE_HOME", ".local", "state")
}

// LogFile returns the default log file location for a component.
func LogFile(component string) string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs", component+".log")
}
