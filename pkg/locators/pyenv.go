package locators

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
	"github.com/sirupsen/logrus"
)

var (
	pyenvManagerVersion = regexp.MustCompile(`pyenv/(\d+\.\d+\.\d+)/`)
	pyenvVersionDirs    = []*regexp.Regexp{
		regexp.MustCompile(`^(\d+\.\d+\.\d+)$`),
		regexp.MustCompile(`^(\d+\.\d+-dev)$`),
		regexp.MustCompile(`^(\d+\.\d+.\d+\w\d+)`),
	}
	condaDistributions = []string{"anaconda", "miniconda", "miniforge", "mambaforge"}
)

// Pyenv finds the interpreters installed under pyenv's versions directory.
type Pyenv struct {
	host  *hostenv.Snapshot
	conda *Conda
	log   *logrus.Entry
}

// NewPyenv creates a pyenv locator. conda handles conda distributions that
// pyenv installed.
func NewPyenv(host *hostenv.Snapshot, conda *Conda) *Pyenv {
	return &Pyenv{host: host, conda: conda, log: logging.NewLogger("locator.pyenv")}
}

func (p *Pyenv) Name() string { return "pyenv" }

// Root returns pyenv's root directory, or "" when it cannot be determined.
func (p *Pyenv) Root() string {
	if root := p.host.Get("PYENV_ROOT"); root != "" {
		return filepath.Clean(root)
	}
	if root := p.host.Get("PYENV"); root != "" {
		return filepath.Clean(root)
	}
	if p.host.IsWindows() {
		return p.host.HomePath(".pyenv", "pyenv-win")
	}
	return p.host.HomePath(".pyenv")
}

// VersionsDir is the directory that gains a child for every install.
func (p *Pyenv) VersionsDir() string {
	root := p.Root()
	if root == "" {
		return ""
	}
	return filepath.Join(root, "versions")
}

func (p *Pyenv) Find(ctx context.Context) (*models.LocatorResult, error) {
	result := &models.LocatorResult{}
	root := p.Root()
	if root == "" {
		return result, nil
	}

	mgr := p.manager(root)
	if mgr != nil {
		result.Managers = append(result.Managers, mgr)
	}

	versions := filepath.Join(root, "versions")
	entries, err := os.ReadDir(versions)
	if err != nil {
		return result, nil
	}
	for _, entry := range entries {
		if canceled(ctx) {
			return nil, ctx.Err()
		}
		dir := filepath.Join(versions, entry.Name())
		if !probe.IsDir(dir) {
			continue
		}

		if isCondaDistribution(entry.Name()) {
			sub, err := p.conda.FindIn(ctx, dir)
			if err != nil {
				p.log.WithError(err).WithField("path", dir).Warn("Failed to read conda distribution")
				continue
			}
			result.Managers = append(result.Managers, sub.Managers...)
			result.Environments = append(result.Environments, sub.Environments...)
			continue
		}

		if env := p.environment(dir, entry.Name(), "", mgr); env != nil {
			result.Environments = append(result.Environments, env)
		}
	}
	return result, nil
}

// environment describes the version folder dir. An empty exe means the
// folder's own python binary is looked up.
func (p *Pyenv) environment(dir, name, exe string, mgr *models.Manager) *models.Environment {
	if exe == "" {
		found, ok := probe.FindPythonBinary(dir)
		if !ok {
			return nil
		}
		exe = found
	}
	env := &models.Environment{
		Executable: exe,
		Prefix:     dir,
		Kind:       models.KindPyenv,
		Manager:    mgr,
	}

	if version, arch, ok := pyenvFolderVersion(name); ok {
		env.Version = version
		env.Arch = arch
		return env
	}
	if probe.IsVenv(exe) {
		env.Kind = models.KindPyenvVirtualEnv
		env.Name = name
		env.Version, _ = metadata.VersionFromPyvenvCfg(exe)
		return env
	}
	env.Version, _ = metadata.VersionFromHeaders(dir)
	return env
}

// manager locates the pyenv binary and its version.
func (p *Pyenv) manager(root string) *models.Manager {
	names := []string{"pyenv"}
	if p.host.IsWindows() {
		names = []string{"pyenv.bat", "pyenv.exe", "pyenv"}
	}

	binary := ""
	for _, name := range names {
		if candidate := filepath.Join(root, "bin", name); probe.IsFile(candidate) {
			binary = candidate
			break
		}
	}
	if binary == "" {
	search:
		for _, dir := range p.host.GlobalSearchPaths {
			for _, name := range names {
				if candidate := filepath.Join(dir, name); probe.IsFile(candidate) {
					binary = candidate
					break search
				}
			}
		}
	}
	if binary == "" {
		return nil
	}

	mgr := &models.Manager{Tool: models.ToolPyenv, Executable: binary}
	if p.host.IsWindows() {
		if data, err := os.ReadFile(filepath.Join(root, ".version")); err == nil {
			mgr.Version = strings.TrimSpace(string(data))
		}
	} else if target, err := filepath.EvalSymlinks(binary); err == nil {
		if m := pyenvManagerVersion.FindStringSubmatch(filepath.ToSlash(target)); m != nil {
			mgr.Version = m[1]
		}
	}
	return mgr
}

// pyenvFolderVersion reads the version from a versions/ folder name such as
// 3.12.1, 3.13-dev, 3.13.0a1 or 3.9.6-win32.
func pyenvFolderVersion(name string) (string, models.Arch, bool) {
	var arch models.Arch
	if trimmed, ok := strings.CutSuffix(name, "-win32"); ok {
		name = trimmed
		arch = models.ArchX86
	}
	for _, re := range pyenvVersionDirs {
		if m := re.FindStringSubmatch(name); m != nil {
			return m[1], arch, true
		}
	}
	return "", "", false
}

func isCondaDistribution(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range condaDistributions {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Resolve claims an interpreter inside one of pyenv's version folders.
// Conda distributions are left to the conda classifier.
func (p *Pyenv) Resolve(env *models.Environment) (*models.Environment, bool) {
	versions := p.VersionsDir()
	exe := executableOf(env)
	if versions == "" || exe == "" || !probe.IsWithin(exe, versions) {
		return nil, false
	}
	rel, err := filepath.Rel(versions, exe)
	if err != nil {
		return nil, false
	}
	folder := strings.Split(filepath.ToSlash(rel), "/")[0]
	if folder == "." || isCondaDistribution(folder) {
		return nil, false
	}

	out := p.environment(filepath.Join(versions, folder), folder, exe, p.manager(p.Root()))
	if out == nil {
		return nil, false
	}
	out.Symlinks = append([]string(nil), env.Symlinks...)
	return out, true
}
