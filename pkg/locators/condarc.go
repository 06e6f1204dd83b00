package locators

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"gopkg.in/yaml.v3"
)

// condarc is the subset of .condarc that affects where environments live.
type condarc struct {
	EnvsDirs []string `yaml:"envs_dirs"`
	// Older releases spell it envs_path.
	EnvsPath []string `yaml:"envs_path"`
}

// condarcFiles lists the user-level .condarc locations, CONDARC first.
func condarcFiles(host *hostenv.Snapshot) []string {
	var files []string
	if explicit := host.Get("CONDARC"); explicit != "" {
		files = append(files, explicit)
	}
	if host.Home == "" {
		return files
	}
	return append(files,
		host.HomePath(".condarc"),
		host.HomePath(".conda", ".condarc"),
		host.HomePath(".conda", "condarc"),
		host.HomePath(".config", "conda", ".condarc"),
		host.HomePath(".config", "conda", "condarc"),
	)
}

// condarcEnvsDirs returns the envs_dirs configured in every readable .condarc,
// with ~ and environment variables expanded. Unparseable files are skipped.
func condarcEnvsDirs(host *hostenv.Snapshot) []string {
	var dirs []string
	for _, path := range condarcFiles(host) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rc condarc
		if err := yaml.Unmarshal(data, &rc); err != nil {
			continue
		}
		for _, dir := range append(rc.EnvsDirs, rc.EnvsPath...) {
			if dir = expandHostPath(host, dir); dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// expandHostPath expands a leading ~ and $VAR references against host.
func expandHostPath(host *hostenv.Snapshot, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if host.Home == "" {
			return ""
		}
		p = filepath.Join(host.Home, p[1:])
	}
	p = os.Expand(p, host.Get)
	return filepath.Clean(p)
}
