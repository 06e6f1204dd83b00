// Package metadata extracts interpreter versions and related facts from the
// files environments leave on disk, and, for on-demand resolves only, from
// the interpreter itself.
package metadata

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/grovetools/pyfinder/pkg/probe"
)

var (
	cfgVersion     = regexp.MustCompile(`^version\s*=\s*(\d+\.\d+\.\d+)$`)
	cfgVersionInfo = regexp.MustCompile(`^version_info\s*=\s*(\d+\.\d+\.\d+.*)$`)
)

// VersionFromPyvenvCfg reads the version recorded in the pyvenv.cfg that
// governs executable. Missing files and unmatched content are not errors:
// the version is simply unresolved.
func VersionFromPyvenvCfg(executable string) (string, bool) {
	path, ok := probe.FindPyvenvCfg(executable)
	if !ok {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	return ParsePyvenvVersion(f)
}

// ParsePyvenvVersion scans pyvenv.cfg content. Only the first line that
// mentions "version" is considered.
func ParsePyvenvVersion(r io.Reader) (string, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, "version") {
			continue
		}
		if m := cfgVersion.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
		if m := cfgVersionInfo.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
		return "", false
	}
	return "", false
}
