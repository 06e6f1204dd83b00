package locators

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// GlobalVirtualEnvs scans the directories where virtual environments are
// conventionally collected and yields unclassified candidates.
type GlobalVirtualEnvs struct {
	host     *hostenv.Snapshot
	opts     Options
	workon   string
	log      *logrus.Entry
	mu       sync.Mutex
	excludes *patternmatcher.PatternMatcher
}

// NewGlobalVirtualEnvs creates the scanner. workonHome may be empty.
func NewGlobalVirtualEnvs(host *hostenv.Snapshot, opts Options, workonHome string) (*GlobalVirtualEnvs, error) {
	excludes, err := patternmatcher.New(opts.Exclude)
	if err != nil {
		return nil, err
	}
	return &GlobalVirtualEnvs{
		host:     host,
		opts:     opts,
		workon:   workonHome,
		log:      logging.NewLogger("locator.globalvenvs"),
		excludes: excludes,
	}, nil
}

func (g *GlobalVirtualEnvs) Name() string { return "global-virtualenvs" }

// Directories lists the collection directories whose children are scanned.
func (g *GlobalVirtualEnvs) Directories() []string {
	var dirs []string
	if g.host.Home != "" {
		for _, rel := range []string{"envs", ".direnv", ".venvs", ".virtualenvs", filepath.Join(".local", "share", "virtualenvs")} {
			dirs = append(dirs, g.host.HomePath(rel))
		}
		if g.host.GOOS == "linux" {
			dirs = append(dirs, g.host.HomePath("Envs"))
		}
	}
	if g.workon != "" {
		dirs = append(dirs, g.workon)
	}
	dirs = append(dirs, g.poetryDirs()...)
	dirs = append(dirs, g.opts.VirtualEnvPaths...)
	return dirs
}

// poetryDirs returns poetry's virtualenv cache locations.
func (g *GlobalVirtualEnvs) poetryDirs() []string {
	if dir := g.host.Get("POETRY_VIRTUALENVS_PATH"); dir != "" {
		return []string{dir}
	}
	if dir := g.host.Get("POETRY_CACHE_DIR"); dir != "" {
		return []string{filepath.Join(dir, "virtualenvs")}
	}
	switch {
	case g.host.IsWindows():
		if local := g.host.Get("LOCALAPPDATA"); local != "" {
			return []string{filepath.Join(local, "pypoetry", "Cache", "virtualenvs")}
		}
	case g.host.Home == "":
	case g.host.GOOS == "darwin":
		return []string{g.host.HomePath("Library", "Caches", "pypoetry", "virtualenvs")}
	default:
		if cache := g.host.Get("XDG_CACHE_HOME"); cache != "" {
			return []string{filepath.Join(cache, "pypoetry", "virtualenvs")}
		}
		return []string{g.host.HomePath(".cache", "pypoetry", "virtualenvs")}
	}
	return nil
}

func (g *GlobalVirtualEnvs) Find(ctx context.Context) (*models.LocatorResult, error) {
	result := &models.LocatorResult{}
	seen := make(map[string]bool)
	add := func(prefix string) {
		key := g.host.NormalizePath(prefix)
		if seen[key] || g.excluded(prefix) {
			return
		}
		seen[key] = true
		if env := candidate(prefix); env != nil {
			result.Environments = append(result.Environments, env)
		}
	}

	for _, dir := range g.Directories() {
		if canceled(ctx) {
			return nil, ctx.Err()
		}
		for _, child := range g.children(dir) {
			add(child)
		}
	}
	// Workspace folders may be environments themselves or hold one, as in
	// project/.venv.
	for _, dir := range g.opts.SearchPaths {
		if canceled(ctx) {
			return nil, ctx.Err()
		}
		add(filepath.Clean(dir))
		for _, child := range g.children(dir) {
			add(child)
		}
	}
	return result, nil
}

func (g *GlobalVirtualEnvs) children(dir string) []string {
	if g.excluded(dir) {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if probe.IsDir(child) {
			out = append(out, child)
		}
	}
	return out
}

func (g *GlobalVirtualEnvs) excluded(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	matched, err := g.excludes.MatchesOrParentMatches(filepath.ToSlash(path))
	if err != nil {
		g.log.WithError(err).WithField("path", path).Debug("Exclude pattern failed")
		return false
	}
	return matched
}

// candidate returns an unclassified environment for prefix when it holds
// an interpreter.
func candidate(prefix string) *models.Environment {
	exe, ok := probe.FindPythonBinary(prefix)
	if !ok {
		return nil
	}
	env := &models.Environment{
		Executable: exe,
		Prefix:     prefix,
		Kind:       models.KindUnknown,
	}
	env.Version, _ = metadata.VersionFromPyvenvCfg(exe)
	return env
}
