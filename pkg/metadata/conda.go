package metadata

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/grovetools/pyfinder/pkg/models"
)

// CondaPackage describes one conda-meta/<name>-<version>-<build>.json record.
type CondaPackage struct {
	Name    string
	Version string
	Path    string
	Arch    models.Arch
}

type condaMetaRecord struct {
	Channel string `json:"channel"`
	Subdir  string `json:"subdir"`
}

// FindCondaPackage looks up the installed package name in prefix/conda-meta.
// When several builds are present the lexicographically last file wins.
func FindCondaPackage(prefix, name string) (*CondaPackage, bool) {
	entries, err := os.ReadDir(filepath.Join(prefix, "conda-meta"))
	if err != nil {
		return nil, false
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `-((\d+\.*)*)-.*\.json$`)

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && re.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)
	file := names[len(names)-1]

	pkg := &CondaPackage{
		Name:    name,
		Version: strings.TrimRight(re.FindStringSubmatch(file)[1], "."),
		Path:    filepath.Join(prefix, "conda-meta", file),
	}
	if data, err := os.ReadFile(pkg.Path); err == nil {
		var rec condaMetaRecord
		if json.Unmarshal(data, &rec) == nil {
			pkg.Arch = archFromChannel(rec.Subdir, rec.Channel)
		}
	}
	return pkg, true
}

// archFromChannel derives the architecture from a platform suffix such as
// linux-64, osx-arm64 or win-32.
func archFromChannel(values ...string) models.Arch {
	for _, v := range values {
		v = strings.TrimRight(v, "/")
		switch {
		case strings.HasSuffix(v, "64"):
			return models.ArchX64
		case strings.HasSuffix(v, "32"):
			return models.ArchX86
		}
	}
	return ""
}

// CondaCreator returns the install root of the conda that created prefix,
// read from the first "# cmd: <conda> create -..." line of
// conda-meta/history. Both / and \ separated paths are understood.
func CondaCreator(prefix string) (string, bool) {
	f, err := os.Open(filepath.Join(prefix, "conda-meta", "history"))
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "# cmd:") {
			continue
		}
		end := strings.Index(lower, " create -")
		if end < 0 {
			continue
		}
		cmd := strings.TrimSpace(line[len("# cmd:"):end])
		dir, ok := parentOf(cmd)
		if !ok {
			return "", false
		}
		if base := strings.ToLower(baseOf(dir)); base == "bin" || base == "scripts" || base == "condabin" {
			if root, ok := parentOf(dir); ok {
				return root, true
			}
		}
		return dir, true
	}
	return "", false
}

func parentOf(path string) (string, bool) {
	i := strings.LastIndexAny(path, `/\`)
	if i <= 0 {
		return "", false
	}
	return path[:i], true
}

func baseOf(path string) string {
	return path[strings.LastIndexAny(path, `/\`)+1:]
}
