package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths ...string) <-chan string {
	t.Helper()
	changes := make(chan string, 16)
	w, err := NewWatcher(50*time.Millisecond, logging.NewLogger("test"), func(p string) { changes <- p }, paths...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)
	return changes
}

func TestWatcherDirectoryChildren(t *testing.T) {
	versions := testutil.MkdirAll(t, filepath.Join(t.TempDir(), "versions"))
	changes := startWatcher(t, versions)

	require.NoError(t, os.Mkdir(filepath.Join(versions, "3.12.1"), 0755))

	select {
	case p := <-changes:
		assert.Equal(t, filepath.Join(versions, "3.12.1"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherFileDebounced(t *testing.T) {
	dir := t.TempDir()
	envsTxt := testutil.WriteFile(t, filepath.Join(dir, "environments.txt"), "")
	changes := startWatcher(t, envsTxt)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(envsTxt, []byte("/opt/envs/a\n"), 0644))
	}
	// Siblings of a watched file are ignored.
	testutil.WriteFile(t, filepath.Join(dir, "unrelated.txt"), "x")

	select {
	case p := <-changes:
		assert.Equal(t, envsTxt, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case p := <-changes:
		t.Fatalf("unexpected second change: %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSkipsMissingPaths(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "environments.txt")
	w, err := NewWatcher(0, logging.NewLogger("test"), func(string) {}, missing)
	require.NoError(t, err)
	assert.Empty(t, w.files)
	w.Close()
	w.Close()
}
