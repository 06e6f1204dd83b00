package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/pyfinder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCondaEnvironment(t *testing.T) {
	root := t.TempDir()
	prefix := filepath.Join(root, "env")
	exe := testutil.MakeCondaEnv(t, prefix, "3.9.0")
	bin := filepath.Dir(exe)

	t.Run("all three path shapes resolve to the same conda-meta", func(t *testing.T) {
		assert.True(t, IsCondaEnvironment(exe))
		assert.True(t, IsCondaEnvironment(bin))
		assert.True(t, IsCondaEnvironment(prefix))
	})

	t.Run("removing conda-meta flips every shape", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(filepath.Join(prefix, "conda-meta")))
		assert.False(t, IsCondaEnvironment(exe))
		assert.False(t, IsCondaEnvironment(bin))
		assert.False(t, IsCondaEnvironment(prefix))
	})

	t.Run("bin without a sibling conda-meta", func(t *testing.T) {
		other := testutil.MkdirAll(t, filepath.Join(root, "plain", "bin"))
		assert.False(t, IsCondaEnvironment(other))
	})

	t.Run("missing paths are never errors", func(t *testing.T) {
		assert.False(t, IsCondaEnvironment(filepath.Join(root, "nope", "bin", "python")))
		assert.False(t, IsCondaEnvironment(""))
	})
}

func TestVenvAndVirtualenv(t *testing.T) {
	root := t.TempDir()

	venvExe := testutil.MakeVenv(t, filepath.Join(root, "venv"), "3.11.4")
	assert.True(t, IsVenv(venvExe))
	assert.False(t, IsVirtualenv(venvExe))

	veExe := testutil.MakeVirtualenv(t, filepath.Join(root, "ve"))
	assert.True(t, IsVirtualenv(veExe))
	assert.False(t, IsVenv(veExe))

	both := testutil.MakeVenv(t, filepath.Join(root, "both"), "3.12.0")
	testutil.WriteFile(t, filepath.Join(root, "both", "bin", "activate.fish"), "")
	assert.True(t, IsVenv(both))
	assert.True(t, IsVirtualenv(both))

	cfg, ok := FindPyvenvCfg(venvExe)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "venv", "pyvenv.cfg"), cfg)
}

func TestIsVirtualenvWrapperEnv(t *testing.T) {
	workon := t.TempDir()
	inside := testutil.MakeVirtualenv(t, filepath.Join(workon, "proj"))
	outside := testutil.MakeVirtualenv(t, filepath.Join(t.TempDir(), "proj"))

	assert.True(t, IsVirtualenvWrapperEnv(inside, workon))
	assert.False(t, IsVirtualenvWrapperEnv(outside, workon))
	assert.False(t, IsVirtualenvWrapperEnv(inside, ""))
}

func TestSymlinkedPythonExecutable(t *testing.T) {
	root := t.TempDir()
	real := testutil.MakeExecutable(t, filepath.Join(root, "Cellar", "python@3.12", "3.12.1", "bin", "python3.12"))
	link := testutil.Symlink(t, real, filepath.Join(root, "bin", "python3"))
	cfg := testutil.Symlink(t, real, filepath.Join(root, "bin", "python3-config"))

	target, ok := SymlinkedPythonExecutable(link)
	require.True(t, ok)
	resolved, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, resolved, target)

	_, ok = SymlinkedPythonExecutable(cfg)
	assert.False(t, ok, "-config helpers are not interpreters")

	_, ok = SymlinkedPythonExecutable(real)
	assert.False(t, ok, "regular files are not symlinks")
}

func TestFindPythonBinary(t *testing.T) {
	root := t.TempDir()
	exe := testutil.MakeExecutable(t, filepath.Join(root, "bin", "python3"))

	got, ok := FindPythonBinary(root)
	require.True(t, ok)
	assert.Equal(t, exe, got)

	_, ok = FindPythonBinary(filepath.Join(root, "missing"))
	assert.False(t, ok)
}

func TestFindAllPythonBinaries(t *testing.T) {
	dir := t.TempDir()
	testutil.MakeExecutable(t, filepath.Join(dir, "python3.11"))
	testutil.MakeExecutable(t, filepath.Join(dir, "python3"))
	testutil.MakeExecutable(t, filepath.Join(dir, "python3-config"))
	testutil.MakeExecutable(t, filepath.Join(dir, "pip"))

	assert.Equal(t, []string{
		filepath.Join(dir, "python3"),
		filepath.Join(dir, "python3.11"),
	}, FindAllPythonBinaries(dir))
}

func TestIsPythonExeName(t *testing.T) {
	for _, name := range []string{"python", "python3", "python3.12", "python.exe", "Python3.11.exe"} {
		assert.True(t, IsPythonExeName(name), name)
	}
	for _, name := range []string{"python3-config", "pythonw", "ipython", "python3.12-gdb.py"} {
		assert.False(t, IsPythonExeName(name), name)
	}
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin("/a/b/c", "/a/b"))
	assert.True(t, IsWithin("/a/b", "/a/b/"))
	assert.False(t, IsWithin("/a/bc", "/a/b"))
	assert.False(t, IsWithin("/a", "/a/b"))
}

func TestPrefixOf(t *testing.T) {
	root := t.TempDir()
	exe := testutil.MakeExecutable(t, filepath.Join(root, "env", "bin", "python"))
	assert.Equal(t, filepath.Join(root, "env"), PrefixOf(exe))
}
