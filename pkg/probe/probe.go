// Package probe holds pure filesystem predicates used to recognise Python
// environments. Every filesystem error is treated as "no": probes never
// return errors and never panic.
package probe

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var pythonExeName = regexp.MustCompile(`^python(\d+\.?)*(\.exe)?$`)

// binDirs are the interpreter directories of a prefix on unix and Windows.
var binDirs = []string{"bin", "Scripts"}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is a directory (following symlinks).
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile reports whether path is a regular file (following symlinks).
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsPythonExeName reports whether a file name looks like an interpreter:
// python, python3, python3.12, python.exe and so on.
func IsPythonExeName(name string) bool {
	return pythonExeName.MatchString(strings.ToLower(name))
}

func isBinDir(name string) bool {
	for _, b := range binDirs {
		if strings.EqualFold(name, b) {
			return true
		}
	}
	return false
}

// IsCondaEnvironment reports whether path (an interpreter, a bin directory or
// an environment prefix) belongs to a conda environment, i.e. a conda-meta
// directory exists at the corresponding prefix.
func IsCondaEnvironment(path string) bool {
	if path == "" {
		return false
	}
	return IsDir(filepath.Join(prefixOf(path), "conda-meta"))
}

// prefixOf maps an interpreter or bin directory back to its prefix.
func prefixOf(path string) string {
	path = filepath.Clean(path)
	base := filepath.Base(path)
	parent := filepath.Dir(path)
	switch {
	case IsPythonExeName(base) && isBinDir(filepath.Base(parent)):
		return filepath.Dir(parent)
	case IsPythonExeName(base) && !IsDir(path):
		// Windows conda keeps python.exe at the prefix root.
		return parent
	case isBinDir(base):
		return parent
	}
	return path
}

// PrefixOf returns the environment prefix for an interpreter path.
func PrefixOf(executable string) string {
	return prefixOf(executable)
}

// IsVirtualenv reports whether an activate script sits next to executable.
func IsVirtualenv(executable string) bool {
	if executable == "" {
		return false
	}
	dir := filepath.Dir(executable)
	if IsFile(filepath.Join(dir, "activate")) || IsFile(filepath.Join(dir, "activate.bat")) {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if strings.HasPrefix(strings.ToLower(entry.Name()), "activate") {
			return true
		}
	}
	return false
}

// FindPyvenvCfg returns the pyvenv.cfg governing executable: the one in its
// directory, else the one in the parent directory.
func FindPyvenvCfg(executable string) (string, bool) {
	if executable == "" {
		return "", false
	}
	dir := filepath.Dir(executable)
	for _, candidate := range []string{
		filepath.Join(dir, "pyvenv.cfg"),
		filepath.Join(filepath.Dir(dir), "pyvenv.cfg"),
	} {
		if IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// IsVenv reports whether executable is governed by a pyvenv.cfg.
func IsVenv(executable string) bool {
	_, ok := FindPyvenvCfg(executable)
	return ok
}

// IsVirtualenvWrapperEnv reports whether executable is a virtualenv living
// under workonHome.
func IsVirtualenvWrapperEnv(executable, workonHome string) bool {
	if workonHome == "" || !IsWithin(executable, workonHome) {
		return false
	}
	return IsVirtualenv(executable)
}

// SymlinkedPythonExecutable reports whether path is a symlink named like an
// interpreter and returns its fully resolved target.
func SymlinkedPythonExecutable(path string) (string, bool) {
	name := strings.ToLower(filepath.Base(path))
	if !strings.HasPrefix(name, "python") ||
		strings.HasSuffix(name, "-config") || strings.HasSuffix(name, "-build") {
		return "", false
	}
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return "", false
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil || !IsFile(target) {
		return "", false
	}
	return target, true
}

// FindPythonBinary returns the interpreter inside an environment prefix.
func FindPythonBinary(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	candidates := []string{
		filepath.Join(prefix, "bin", "python"),
		filepath.Join(prefix, "bin", "python3"),
		filepath.Join(prefix, "Scripts", "python.exe"),
		filepath.Join(prefix, "Scripts", "python3.exe"),
		filepath.Join(prefix, "python.exe"),
		filepath.Join(prefix, "python3.exe"),
		filepath.Join(prefix, "python"),
		filepath.Join(prefix, "python3"),
	}
	for _, c := range candidates {
		if IsFile(c) {
			return c, true
		}
	}
	return "", false
}

// FindAllPythonBinaries lists interpreter-named files directly inside dir,
// sorted by name.
func FindAllPythonBinaries(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if !IsPythonExeName(entry.Name()) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if IsFile(full) {
			out = append(out, full)
		}
	}
	return out
}

// IsWithin reports whether child is parent or nested below it.
func IsWithin(child, parent string) bool {
	if child == "" || parent == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
