package hostenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PYENV_ROOT", "/tmp/pyenv-root")
	t.Setenv("PATH", "/a/bin:/b/bin")

	s := Capture()
	assert.Equal(t, "/tmp/pyenv-root", s.Get("PYENV_ROOT"))
	if !s.IsWindows() {
		assert.Equal(t, []string{"/a/bin", "/b/bin"}, s.PathDirs)
		assert.Contains(t, s.GlobalSearchPaths, "/usr/bin")
	}
}

func TestSearchDirsDeduplicates(t *testing.T) {
	s := &Snapshot{
		GOOS:              "linux",
		PathDirs:          []string{"/usr/bin", "/home/u/.local/bin", "/usr/bin/"},
		GlobalSearchPaths: []string{"/usr/bin", "/opt/bin"},
	}
	assert.Equal(t, []string{"/usr/bin", "/home/u/.local/bin", "/opt/bin"}, s.SearchDirs())
}

func TestNormalizePath(t *testing.T) {
	linux := &Snapshot{GOOS: "linux"}
	darwin := &Snapshot{GOOS: "darwin"}

	assert.Equal(t, "/Users/Me/envs", linux.NormalizePath("/Users/Me/envs/"))
	assert.Equal(t, "/users/me/envs", darwin.NormalizePath("/Users/Me/envs"))
	assert.Equal(t, "", linux.NormalizePath(""))
}

func TestNilSnapshotGet(t *testing.T) {
	var s *Snapshot
	assert.Equal(t, "", s.Get("HOME"))
}
