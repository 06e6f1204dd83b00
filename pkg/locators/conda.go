package locators

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/metadata"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/probe"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Conda finds conda installations and their environments. It is both a
// Finder and the Classifier used to claim interpreters that sit inside a
// conda prefix.
type Conda struct {
	host     *hostenv.Snapshot
	explicit string
	log      *logrus.Entry

	once     sync.Once
	installs []condaInstall
}

// condaInstall is one conda installation and the binary that drives it.
type condaInstall struct {
	root    string
	manager *models.Manager
}

// NewConda creates a conda locator. explicitExecutable, when it names an
// existing file, takes precedence over every search location.
func NewConda(host *hostenv.Snapshot, explicitExecutable string) *Conda {
	return &Conda{
		host:     host,
		explicit: explicitExecutable,
		log:      logging.NewLogger("locator.conda"),
	}
}

func (c *Conda) Name() string { return "conda" }

// Manager returns the conda binary that run commands default to, or nil
// when none was found.
func (c *Conda) Manager() *models.Manager {
	if installs := c.installations(); len(installs) > 0 {
		return installs[0].manager
	}
	return nil
}

// installations returns every conda installation on the machine. The first
// entry holds the binary picked by locateBinary; the others follow in
// search order. The lookup happens once per locator.
func (c *Conda) installations() []condaInstall {
	c.once.Do(func() {
		seen := make(map[string]bool)
		add := func(binary string) {
			root := condaInstallRoot(binary)
			key := c.host.NormalizePath(root)
			if seen[key] {
				return
			}
			seen[key] = true
			mgr := newCondaManager(binary)
			c.installs = append(c.installs, condaInstall{root: root, manager: mgr})
			c.log.WithFields(logrus.Fields{
				"binary":  binary,
				"version": mgr.Version,
			}).Debug("Located conda")
		}

		if binary := c.locateBinary(); binary != "" {
			add(binary)
		}
		for _, root := range c.knownRoots() {
			if binary := c.binaryUnder(root); binary != "" {
				add(binary)
			}
		}
		// Installs in custom locations show up in environments.txt.
		for _, prefix := range c.environmentsTxt() {
			if !probe.IsDir(filepath.Join(prefix, "envs")) {
				continue
			}
			if binary := c.binaryUnder(prefix); binary != "" {
				add(binary)
			}
		}
	})
	return c.installs
}

// Find enumerates every conda environment known to the machine, with one
// manager per installation.
func (c *Conda) Find(ctx context.Context) (*models.LocatorResult, error) {
	installs := c.installations()
	envsDirs, locations := c.layout(installs)
	prefixes := c.candidatePrefixes(c.environmentsTxt(), locations)

	envs, err := c.describe(ctx, prefixes, envsDirs, installs)
	if err != nil {
		return nil, err
	}
	result := &models.LocatorResult{Environments: envs}
	for _, inst := range installs {
		result.Managers = append(result.Managers, inst.manager)
	}
	return result, nil
}

// FindIn enumerates the environments of a single installation rooted at
// root, such as a miniconda folder inside pyenv's versions directory.
func (c *Conda) FindIn(ctx context.Context, root string) (*models.LocatorResult, error) {
	inst := condaInstall{root: root}
	if binary := c.binaryUnder(root); binary != "" {
		inst.manager = newCondaManager(binary)
	}

	envsDir := filepath.Join(root, "envs")
	prefixes := c.candidatePrefixes(nil, []string{root, envsDir})
	envs, err := c.describe(ctx, prefixes, []string{envsDir}, []condaInstall{inst})
	if err != nil {
		return nil, err
	}
	result := &models.LocatorResult{Environments: envs}
	if inst.manager != nil {
		result.Managers = append(result.Managers, inst.manager)
	}
	return result, nil
}

// Resolve claims a candidate whose interpreter lives in a conda prefix.
func (c *Conda) Resolve(env *models.Environment) (*models.Environment, bool) {
	path := env.Prefix
	if path == "" {
		path = env.Executable
	}
	if !probe.IsCondaEnvironment(path) {
		return nil, false
	}
	prefix := probe.PrefixOf(path)

	installs := c.installations()
	envsDirs, _ := c.layout(installs)
	out := c.environment(prefix, envsDirs, c.installFor(prefix, installs))
	if env.Executable != "" {
		out.Executable = env.Executable
	}
	out.Symlinks = append([]string(nil), env.Symlinks...)
	return out, true
}

// installFor picks the installation that owns prefix: the innermost install
// containing it, else the one recorded in conda-meta/history, else the
// default binary.
func (c *Conda) installFor(prefix string, installs []condaInstall) condaInstall {
	key := c.host.NormalizePath(prefix)
	best, bestLen := -1, 0
	for i, inst := range installs {
		root := c.host.NormalizePath(inst.root)
		if probe.IsWithin(key, root) && len(root) > bestLen {
			best, bestLen = i, len(root)
		}
	}
	if best >= 0 {
		return installs[best]
	}

	if creator, ok := metadata.CondaCreator(prefix); ok {
		creatorKey := c.host.NormalizePath(filepath.Clean(creator))
		for _, inst := range installs {
			if c.host.NormalizePath(inst.root) == creatorKey {
				return inst
			}
		}
	}
	if len(installs) > 0 {
		return installs[0]
	}
	return condaInstall{}
}

func (c *Conda) binaryNames() []string {
	if c.host.IsWindows() {
		return []string{"conda.exe", "conda.bat"}
	}
	return []string{"conda"}
}

func (c *Conda) binDirs(root string) []string {
	if c.host.IsWindows() {
		return []string{
			filepath.Join(root, "Scripts"),
			filepath.Join(root, "condabin"),
			filepath.Join(root, "Library", "bin"),
		}
	}
	return []string{filepath.Join(root, "bin"), filepath.Join(root, "condabin")}
}

func (c *Conda) binaryIn(dir string) string {
	for _, name := range c.binaryNames() {
		if candidate := filepath.Join(dir, name); probe.IsFile(candidate) {
			return candidate
		}
	}
	return ""
}

// binaryUnder returns the conda binary of the installation rooted at root.
func (c *Conda) binaryUnder(root string) string {
	for _, dir := range c.binDirs(root) {
		if binary := c.binaryIn(dir); binary != "" {
			return binary
		}
	}
	return ""
}

// knownRoots lists the well-known install roots, machine-wide first.
func (c *Conda) knownRoots() []string {
	roots := append([]string(nil), c.host.InstallRoots...)
	if c.host.Home != "" {
		for _, name := range []string{"anaconda3", "miniconda3", "miniforge3", "mambaforge"} {
			roots = append(roots, c.host.HomePath(name))
		}
	}
	return roots
}

// locateBinary searches, in order: the explicit path, PATH, the well-known
// install roots and the global search paths.
func (c *Conda) locateBinary() string {
	if c.explicit != "" && probe.IsFile(c.explicit) {
		return c.explicit
	}
	for _, dir := range c.host.PathDirs {
		if binary := c.binaryIn(dir); binary != "" {
			return binary
		}
	}
	for _, root := range c.knownRoots() {
		if binary := c.binaryUnder(root); binary != "" {
			return binary
		}
	}
	for _, dir := range c.host.GlobalSearchPaths {
		if binary := c.binaryIn(dir); binary != "" {
			return binary
		}
	}
	return ""
}

// layout returns the envs roots (whose children get named environments)
// and every location scanned for environments. The parent of the default
// installation is scanned as well.
func (c *Conda) layout(installs []condaInstall) (envsDirs, locations []string) {
	if home := c.host.HomePath(".conda", "envs"); home != "" {
		envsDirs = append(envsDirs, home)
		locations = append(locations, home)
	}
	for i, inst := range installs {
		envs := filepath.Join(inst.root, "envs")
		envsDirs = append(envsDirs, envs)
		locations = append(locations, inst.root, envs)
		if i == 0 {
			parent := filepath.Dir(inst.root)
			envsDirs = append(envsDirs, filepath.Join(parent, "envs"))
			locations = append(locations, parent, filepath.Join(parent, "envs"))
		}
	}
	rc := condarcEnvsDirs(c.host)
	envsDirs = append(envsDirs, rc...)
	locations = append(locations, rc...)
	return envsDirs, locations
}

// environmentsTxt reads the prefixes conda records in ~/.conda/environments.txt.
func (c *Conda) environmentsTxt() []string {
	path := c.host.HomePath(".conda", "environments.txt")
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var prefixes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			prefixes = append(prefixes, line)
		}
	}
	return prefixes
}

// installDirs are the tool folders of an install root. They never hold an
// environment of their own.
var installDirs = map[string]bool{
	"bin":      true,
	"scripts":  true,
	"condabin": true,
	"library":  true,
}

// candidatePrefixes merges the listed prefixes with the conda environments
// found at or directly below each location. The result is sorted and
// deduplicated; on a normalized collision the later path wins.
func (c *Conda) candidatePrefixes(listed, locations []string) []string {
	var found []string
	for _, p := range listed {
		if probe.IsCondaEnvironment(p) {
			found = append(found, probe.PrefixOf(p))
		}
	}
	for _, loc := range locations {
		if probe.IsCondaEnvironment(loc) {
			found = append(found, probe.PrefixOf(loc))
		}
		entries, err := os.ReadDir(loc)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if installDirs[strings.ToLower(entry.Name())] {
				continue
			}
			child := filepath.Join(loc, entry.Name())
			if probe.IsDir(filepath.Join(child, "conda-meta")) {
				found = append(found, child)
			}
		}
	}

	sort.Strings(found)
	var order []string
	byKey := make(map[string]string, len(found))
	for _, p := range found {
		key := c.host.NormalizePath(p)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = p
	}
	prefixes := make([]string, 0, len(order))
	for _, key := range order {
		prefixes = append(prefixes, byKey[key])
	}
	return prefixes
}

// describe builds the environment for every prefix. Prefixes are read
// concurrently; the output keeps their order.
func (c *Conda) describe(ctx context.Context, prefixes, envsDirs []string, installs []condaInstall) ([]*models.Environment, error) {
	described := make([]*models.Environment, len(prefixes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, prefix := range prefixes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			described[i] = c.environment(prefix, envsDirs, c.installFor(prefix, installs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	envs := make([]*models.Environment, 0, len(described))
	for _, env := range described {
		if env != nil {
			envs = append(envs, env)
		}
	}
	return envs, nil
}

func (c *Conda) environment(prefix string, envsDirs []string, inst condaInstall) *models.Environment {
	mgr := inst.manager
	env := &models.Environment{
		Prefix:  prefix,
		Kind:    models.KindConda,
		Manager: mgr,
	}
	if exe, ok := probe.FindPythonBinary(prefix); ok {
		env.Executable = exe
	}
	if pkg, ok := metadata.FindCondaPackage(prefix, "python"); ok {
		env.Version = pkg.Version
		env.Arch = pkg.Arch
	}

	name, named := c.envName(prefix, envsDirs, inst.root)
	env.Name = name
	switch {
	case mgr != nil && named:
		env.RunCommand = []string{mgr.Executable, "run", "-n", name, "python"}
	case mgr != nil:
		env.RunCommand = []string{mgr.Executable, "run", "-p", prefix, "python"}
	case env.Executable != "":
		env.RunCommand = []string{env.Executable}
	}
	return env
}

// envName names an environment. Environments strictly below an envs root
// are addressable by name; all others only by path.
func (c *Conda) envName(prefix string, envsDirs []string, root string) (string, bool) {
	key := c.host.NormalizePath(prefix)
	for _, dir := range envsDirs {
		if c.host.NormalizePath(dir) == key || !probe.IsWithin(key, c.host.NormalizePath(dir)) {
			continue
		}
		if rel, err := filepath.Rel(dir, prefix); err == nil && probe.IsWithin(prefix, dir) {
			return filepath.ToSlash(rel), true
		}
	}
	if root != "" && c.host.NormalizePath(root) == key {
		return "base", false
	}
	return filepath.Base(prefix), false
}

func newCondaManager(binary string) *models.Manager {
	mgr := &models.Manager{Tool: models.ToolConda, Executable: binary}
	root := condaInstallRoot(binary)
	for _, dir := range []string{root, filepath.Dir(root)} {
		if pkg, ok := metadata.FindCondaPackage(dir, "conda"); ok {
			mgr.Version = pkg.Version
			break
		}
	}
	return mgr
}

// condaInstallRoot maps <root>/bin/conda, <root>/Scripts/conda.exe and
// <root>/Library/bin/conda.bat back to <root>.
func condaInstallRoot(binary string) string {
	dir := filepath.Dir(binary)
	switch strings.ToLower(filepath.Base(dir)) {
	case "bin", "scripts", "condabin":
		dir = filepath.Dir(dir)
	}
	if strings.EqualFold(filepath.Base(dir), "Library") {
		dir = filepath.Dir(dir)
	}
	return dir
}
