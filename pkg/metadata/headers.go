package metadata

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
)

var pyVersionDefine = regexp.MustCompile(`^#define\s+PY_VERSION\s+"([^"]+)"`)

// VersionFromHeaders reads PY_VERSION from patchlevel.h below prefix, either
// include/python*/patchlevel.h or the framework's Headers/patchlevel.h.
func VersionFromHeaders(prefix string) (string, bool) {
	candidates, _ := filepath.Glob(filepath.Join(prefix, "include", "python*", "patchlevel.h"))
	candidates = append(candidates,
		filepath.Join(prefix, "Headers", "patchlevel.h"),
		filepath.Join(prefix, "include", "patchlevel.h"),
	)
	for _, path := range candidates {
		if v, ok := readPatchlevel(path); ok {
			return v, true
		}
	}
	return "", false
}

func readPatchlevel(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := pyVersionDefine.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ShortestExecutable picks the shortest path, preferring earlier entries on ties.
func ShortestExecutable(paths ...string) string {
	best := ""
	for _, p := range paths {
		if p == "" {
			continue
		}
		if best == "" || len(p) < len(best) {
			best = p
		}
	}
	return best
}
