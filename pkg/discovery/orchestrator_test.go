package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/grovetools/pyfinder/errors"
	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/grovetools/pyfinder/pkg/locators"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	envs     []*models.Environment
	managers []*models.Manager
}

func (r *recorder) EmitManager(m *models.Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers = append(r.managers, m)
}

func (r *recorder) EmitEnvironment(env *models.Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

func (r *recorder) byName() map[string]*models.Environment {
	out := make(map[string]*models.Environment)
	for _, env := range r.envs {
		out[env.DefaultName()] = env
	}
	return out
}

func (r *recorder) executables() []string {
	var out []string
	for _, env := range r.envs {
		out = append(out, env.Executable)
	}
	sort.Strings(out)
	return out
}

type failingFinder struct {
	name  string
	panic bool
}

func (f failingFinder) Name() string { return f.name }

func (f failingFinder) Find(context.Context) (*models.LocatorResult, error) {
	if f.panic {
		panic("conda-meta exploded")
	}
	return nil, fmt.Errorf("permission denied")
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixtures use the unix bin/ layout")
	}
}

func run(t *testing.T, host *hostenv.Snapshot, opts locators.Options) (*recorder, *Run) {
	t.Helper()
	plan, err := DefaultPlan(host, opts)
	require.NoError(t, err)
	rec := &recorder{}
	r := New(host, 4).Run(context.Background(), plan, rec)
	return rec, r
}

func TestRunFindsVenvAndConda(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	foo := testutil.MakeVenv(t, filepath.Join(home, ".virtualenvs", "foo"), "3.11.4")
	bar := testutil.MakeCondaEnv(t, filepath.Join(home, ".conda", "envs", "bar"), "3.9.0")

	rec, r := run(t, testutil.Snapshot(home, nil), locators.Options{})
	assert.True(t, r.Completed())
	assert.NoError(t, r.Err())
	assert.Zero(t, r.Pending())

	require.Len(t, rec.envs, 2)
	envs := rec.byName()
	assert.Equal(t, models.KindVenv, envs["foo"].Kind)
	assert.Equal(t, foo, envs["foo"].Executable)
	assert.Equal(t, "3.11.4", envs["foo"].Version)
	assert.Equal(t, models.KindConda, envs["bar"].Kind)
	assert.Equal(t, bar, envs["bar"].Executable)
	assert.Equal(t, "3.9.0", envs["bar"].Version)
	assert.Empty(t, rec.managers)
}

func TestVenvTakesPrecedenceOverVirtualEnv(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	prefix := filepath.Join(home, ".venvs", "both")
	testutil.MakeVenv(t, prefix, "3.12.2")
	testutil.WriteFile(t, filepath.Join(prefix, "bin", "activate"), "# activate\n")

	rec, _ := run(t, testutil.Snapshot(home, nil), locators.Options{})
	require.Len(t, rec.envs, 1)
	assert.Equal(t, models.KindVenv, rec.envs[0].Kind)
}

func TestPipenvTakesPrecedenceOverVenv(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	project := testutil.MkdirAll(t, filepath.Join(home, "code", "api"))
	prefix := filepath.Join(home, ".local", "share", "virtualenvs", "api-x1Y2")
	testutil.MakeVenv(t, prefix, "3.11.4")
	testutil.WriteFile(t, filepath.Join(prefix, ".project"), project)

	rec, _ := run(t, testutil.Snapshot(home, nil), locators.Options{})
	require.Len(t, rec.envs, 1)
	assert.Equal(t, models.KindPipenv, rec.envs[0].Kind)
	assert.Equal(t, project, rec.envs[0].Project)
}

func TestRunSurvivesFailingLocator(t *testing.T) {
	skipOnWindows(t)
	for _, panics := range []bool{false, true} {
		t.Run(fmt.Sprintf("panic=%v", panics), func(t *testing.T) {
			home := t.TempDir()
			testutil.MakeVenv(t, filepath.Join(home, ".virtualenvs", "foo"), "3.11.4")
			testutil.MakeCondaEnv(t, filepath.Join(home, ".conda", "envs", "bar"), "3.9.0")
			pyenvRoot := filepath.Join(home, ".pyenv")
			pyenvExe := testutil.MakeExecutable(t, filepath.Join(pyenvRoot, "versions", "3.12.1", "bin", "python"))
			brew := filepath.Join(home, "brew")
			target := testutil.MakeExecutable(t, filepath.Join(brew, "Cellar", "python@3.11", "3.11.9", "bin", "python3.11"))
			brewExe := testutil.Symlink(t, target, filepath.Join(brew, "bin", "python3"))

			var mu sync.Mutex
			var logged []string
			stop := logging.Forward(func(level, message string) {
				mu.Lock()
				defer mu.Unlock()
				if level == "error" {
					logged = append(logged, message)
				}
			})
			defer stop()

			host := testutil.Snapshot(home, map[string]string{"PYENV_ROOT": pyenvRoot, "HOMEBREW_PREFIX": brew})
			plan, err := DefaultPlan(host, locators.Options{})
			require.NoError(t, err)
			plan.Finders[2] = failingFinder{name: "conda", panic: panics}

			rec := &recorder{}
			r := New(host, 2).Run(context.Background(), plan, rec)
			assert.True(t, r.Completed())

			envs := rec.byName()
			require.Contains(t, envs, "foo")
			assert.Equal(t, models.KindVenv, envs["foo"].Kind)

			byExe := make(map[string]*models.Environment)
			for _, env := range rec.envs {
				byExe[env.Executable] = env
			}
			require.Contains(t, byExe, pyenvExe)
			assert.Equal(t, models.KindPyenv, byExe[pyenvExe].Kind)
			assert.Equal(t, "3.12.1", byExe[pyenvExe].Version)
			require.Contains(t, byExe, brewExe)
			assert.Equal(t, models.KindHomebrew, byExe[brewExe].Kind)
			assert.Equal(t, "3.11.9", byExe[brewExe].Version)

			mu.Lock()
			defer mu.Unlock()
			require.NotEmpty(t, logged)
			assert.Contains(t, strings.Join(logged, "\n"), "Locator failed")
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(home, ".virtualenvs", "foo"), "3.11.4")
	testutil.MakeVirtualenv(t, filepath.Join(home, ".virtualenvs", "legacy"))
	testutil.MakeCondaEnv(t, filepath.Join(home, ".conda", "envs", "bar"), "3.9.0")
	host := testutil.Snapshot(home, nil)

	first, _ := run(t, host, locators.Options{})
	second, _ := run(t, host, locators.Options{})
	assert.Len(t, first.envs, 3)
	assert.Equal(t, first.executables(), second.executables())
}

func TestRunDeduplicatesAcrossPhases(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	root := filepath.Join(home, "miniconda3")
	conda := testutil.MakeCondaInstall(t, root, "23.7.4", "3.11.4")
	testutil.MakeCondaEnv(t, filepath.Join(root, "envs", "a"), "3.9.0")
	testutil.MakeCondaEnv(t, filepath.Join(root, "envs", "b"), "3.10.1")

	host := testutil.Snapshot(home, nil)
	host.PathDirs = []string{filepath.Join(root, "bin"), filepath.Join(root, "envs", "a", "bin")}

	rec, _ := run(t, host, locators.Options{})
	assert.Len(t, rec.envs, 3)
	require.Len(t, rec.managers, 1)
	assert.Equal(t, conda, rec.managers[0].Executable)
}

func TestRunClassifiesGlobalInterpreters(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	globalBin := filepath.Join(home, "usr", "bin")
	system := testutil.MakeExecutable(t, filepath.Join(globalBin, "python3"))
	other := testutil.MakeExecutable(t, filepath.Join(home, "tools", "bin", "python3"))
	activated := testutil.MakeVenv(t, filepath.Join(home, "proj", ".venv"), "3.12.0")

	host := testutil.Snapshot(home, nil)
	host.GlobalSearchPaths = []string{globalBin}
	host.PathDirs = []string{filepath.Join(home, "tools", "bin"), filepath.Join(home, "proj", ".venv", "bin")}

	rec, _ := run(t, host, locators.Options{})
	kinds := make(map[string]models.Kind)
	for _, env := range rec.envs {
		kinds[env.Executable] = env.Kind
	}
	assert.Equal(t, models.KindSystem, kinds[system])
	assert.Equal(t, models.KindOtherGlobal, kinds[other])
	assert.Equal(t, models.KindVenv, kinds[activated])
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(home, ".virtualenvs", "foo"), "3.11.4")
	host := testutil.Snapshot(home, nil)
	plan, err := DefaultPlan(host, locators.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	r := New(host, 0).Run(ctx, plan, rec)
	assert.False(t, r.Completed())
	assert.ErrorIs(t, r.Err(), context.Canceled)
	assert.Empty(t, rec.envs)
}

func TestClassifyFirstMatchWins(t *testing.T) {
	o := New(testutil.Snapshot(t.TempDir(), nil), 1)
	var calls []string
	rule := func(name string, match, claim bool) Rule {
		return Rule{
			Name:  name,
			Match: func(*models.Environment) bool { calls = append(calls, name); return match },
			Classify: func(env *models.Environment) (*models.Environment, bool) {
				if !claim {
					return nil, false
				}
				out := env.Clone()
				out.Name = name
				return out, true
			},
		}
	}

	env, err := o.classify([]Rule{
		rule("skipped", false, true),
		rule("declines", true, false),
		rule("wins", true, true),
		rule("never", true, true),
	}, &models.Environment{Executable: "/x/bin/python"})
	require.NoError(t, err)
	assert.Equal(t, "wins", env.Name)
	assert.Equal(t, []string{"skipped", "declines", "wins"}, calls)

	_, err = o.classify([]Rule{{
		Name:     "boom",
		Classify: func(*models.Environment) (*models.Environment, bool) { panic("bad") },
	}}, &models.Environment{Executable: "/x"})
	assert.Error(t, err)
}

func TestIdentify(t *testing.T) {
	skipOnWindows(t)
	home := t.TempDir()
	venv := testutil.MakeVenv(t, filepath.Join(home, "proj", ".venv"), "3.12.0")
	plain := testutil.MakeExecutable(t, filepath.Join(home, "opt", "bin", "python3"))
	host := testutil.Snapshot(home, nil)
	plan, err := DefaultPlan(host, locators.Options{})
	require.NoError(t, err)
	o := New(host, 1)

	env, err := o.Identify(context.Background(), plan, venv)
	require.NoError(t, err)
	assert.Equal(t, models.KindVenv, env.Kind)
	assert.Equal(t, "3.12.0", env.Version)

	env, err = o.Identify(context.Background(), plan, plain)
	require.NoError(t, err)
	assert.Equal(t, models.KindOtherGlobal, env.Kind)

	_, err = o.Identify(context.Background(), plan, filepath.Join(home, "missing", "python"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExecutableNotFound, errors.GetCode(err))

	_, err = o.Identify(context.Background(), plan, filepath.Join(home, "proj"))
	assert.Equal(t, errors.ErrCodeResolveFailed, errors.GetCode(err))
}
