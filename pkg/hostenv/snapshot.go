// Package hostenv captures the process environment once so that locators
// never read environment variables or the user's home directly.
package hostenv

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// unixSearchPaths are the well-known interpreter locations outside PATH.
var unixSearchPaths = []string{
	"/usr/bin",
	"/usr/local/bin",
	"/bin",
	"/home/bin",
	"/sbin",
	"/usr/sbin",
	"/usr/local/sbin",
	"/home/sbin",
	"/opt",
	"/opt/bin",
	"/opt/sbin",
	"/opt/homebrew/bin",
}

// unixInstallRoots are the well-known distribution install locations.
var unixInstallRoots = []string{
	"/opt/anaconda3",
	"/opt/miniconda3",
	"/usr/local/anaconda3",
	"/usr/local/miniconda3",
	"/usr/anaconda3",
	"/usr/miniconda3",
	"/home/anaconda3",
	"/home/miniconda3",
	"/anaconda3",
	"/miniconda3",
}

// Snapshot is a read-only view of the host: environment variables, the home
// directory, the operating system and the directories searched for
// interpreters. It is safe for concurrent use once built.
type Snapshot struct {
	// Vars holds environment variables by name.
	Vars map[string]string
	Home string
	GOOS string
	// PathDirs is PATH split into directories, in order.
	PathDirs []string
	// GlobalSearchPaths are known install locations checked besides PATH.
	GlobalSearchPaths []string
	// InstallRoots are machine-wide distribution roots such as /opt/anaconda3.
	InstallRoots []string
}

// Capture builds a Snapshot of the running process.
func Capture() *Snapshot {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	home, _ := os.UserHomeDir()

	s := &Snapshot{
		Vars: vars,
		Home: home,
		GOOS: runtime.GOOS,
	}
	s.PathDirs = splitList(vars["PATH"], s.listSeparator())
	if s.GOOS != "windows" {
		s.GlobalSearchPaths = append([]string(nil), unixSearchPaths...)
		s.InstallRoots = append([]string(nil), unixInstallRoots...)
	} else {
		s.InstallRoots = windowsInstallRoots(vars)
	}
	return s
}

// Get returns the value of an environment variable, or "".
func (s *Snapshot) Get(key string) string {
	if s == nil || s.Vars == nil {
		return ""
	}
	return s.Vars[key]
}

// IsWindows reports whether the snapshot describes a Windows host.
func (s *Snapshot) IsWindows() bool {
	return s.GOOS == "windows"
}

// CaseInsensitive reports whether paths on this host compare case-insensitively.
func (s *Snapshot) CaseInsensitive() bool {
	return s.GOOS == "windows" || s.GOOS == "darwin"
}

// HomePath joins elem onto the home directory. It returns "" without a home.
func (s *Snapshot) HomePath(elem ...string) string {
	if s.Home == "" {
		return ""
	}
	return filepath.Join(append([]string{s.Home}, elem...)...)
}

// SearchDirs returns PATH followed by the known global locations, deduplicated.
func (s *Snapshot) SearchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, d := range append(append([]string(nil), s.PathDirs...), s.GlobalSearchPaths...) {
		if d == "" {
			continue
		}
		key := s.NormalizePath(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		dirs = append(dirs, d)
	}
	return dirs
}

// NormalizePath returns the comparison key for a path: cleaned, and
// lower-cased where the filesystem is case-insensitive.
func (s *Snapshot) NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if s.CaseInsensitive() {
		p = strings.ToLower(p)
	}
	return p
}

func windowsInstallRoots(vars map[string]string) []string {
	var roots []string
	for _, base := range []string{vars["USERPROFILE"], vars["PROGRAMDATA"], vars["ALLUSERSPROFILE"], vars["ProgramFiles"]} {
		if base == "" {
			continue
		}
		for _, name := range []string{"Anaconda3", "Miniconda3", "miniforge3"} {
			roots = append(roots, filepath.Join(base, name))
		}
	}
	return roots
}

func (s *Snapshot) listSeparator() string {
	if s.IsWindows() {
		return ";"
	}
	return ":"
}

func splitList(value, sep string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
