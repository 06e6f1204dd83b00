// Package testutil builds on-disk Python environment fixtures for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/grovetools/pyfinder/pkg/hostenv"
	"github.com/stretchr/testify/require"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// MakeExecutable writes a stub executable at path.
func MakeExecutable(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

// MkdirAll creates a directory tree.
func MkdirAll(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0755))
	return path
}

// Symlink creates link pointing at target, creating link's parent.
func Symlink(t *testing.T, target, link string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.Symlink(target, link))
	return link
}

// MakeVenv creates a stdlib venv layout: bin/python plus pyvenv.cfg. An empty
// version writes a pyvenv.cfg without a version line. It returns the
// interpreter path.
func MakeVenv(t *testing.T, prefix, version string) string {
	t.Helper()
	cfg := "home = /usr/bin\ninclude-system-site-packages = false\n"
	if version != "" {
		cfg += fmt.Sprintf("version = %s\n", version)
	}
	WriteFile(t, filepath.Join(prefix, "pyvenv.cfg"), cfg)
	return MakeExecutable(t, filepath.Join(prefix, "bin", "python"))
}

// MakeVirtualenv creates a virtualenv layout: bin/python and bin/activate.
func MakeVirtualenv(t *testing.T, prefix string) string {
	t.Helper()
	WriteFile(t, filepath.Join(prefix, "bin", "activate"), "# activate\n")
	return MakeExecutable(t, filepath.Join(prefix, "bin", "python"))
}

// MakeCondaEnv creates a conda environment with a conda-meta record for the
// given python version (skipped when empty). It returns the interpreter path.
func MakeCondaEnv(t *testing.T, prefix, pythonVersion string) string {
	t.Helper()
	MkdirAll(t, filepath.Join(prefix, "conda-meta"))
	if pythonVersion != "" {
		WriteCondaPackage(t, prefix, "python", pythonVersion, "pkgs/main/linux-64")
	}
	return MakeExecutable(t, filepath.Join(prefix, "bin", "python"))
}

// WriteCondaPackage writes conda-meta/<name>-<version>-0.json.
func WriteCondaPackage(t *testing.T, prefix, name, version, channel string) string {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"name":    name,
		"version": version,
		"channel": channel,
	})
	require.NoError(t, err)
	return WriteFile(t, filepath.Join(prefix, "conda-meta", fmt.Sprintf("%s-%s-0.json", name, version)), string(data))
}

// MakeCondaInstall creates a conda installation at root (itself the base
// environment) and returns the conda binary path.
func MakeCondaInstall(t *testing.T, root, condaVersion, pythonVersion string) string {
	t.Helper()
	MakeCondaEnv(t, root, pythonVersion)
	WriteCondaPackage(t, root, "conda", condaVersion, "pkgs/main/linux-64")
	return MakeExecutable(t, filepath.Join(root, "bin", "conda"))
}

// Snapshot returns a host snapshot rooted at home with no PATH and no global
// search locations, so tests never see the machine's real interpreters.
func Snapshot(home string, vars map[string]string) *hostenv.Snapshot {
	if vars == nil {
		vars = make(map[string]string)
	}
	return &hostenv.Snapshot{
		Vars: vars,
		Home: home,
		GOOS: runtime.GOOS,
	}
}

// MakeFakeInterpreter writes a shell script that answers the introspection
// call like a real interpreter would.
func MakeFakeInterpreter(t *testing.T, path, version, prefix string) string {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\necho '{\"executable\": \"%s\", \"prefix\": \"%s\", \"version\": \"%s\", \"is64bit\": true}'\n",
		path, prefix, version)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}
