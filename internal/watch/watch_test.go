package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, root string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := New(root, nil, WithDebounce(debounce))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return w
}

func awaitRequest(w *Watcher, timeout time.Duration) bool {
	select {
	case <-w.Requests():
		return true
	case <-time.After(timeout):
		return false
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("# note\n"), 0o644))
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, 250*time.Millisecond)

	for i := 0; i < 10; i++ {
		write(t, filepath.Join(dir, "note"+string(rune('0'+i))+".md"))
	}

	assert.True(t, awaitRequest(w, 3*time.Second), "burst must produce a request")
	assert.False(t, awaitRequest(w, 600*time.Millisecond), "burst must coalesce to a single request")
}

func TestWatcherWatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, 100*time.Millisecond)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.True(t, awaitRequest(w, 3*time.Second), "directory creation triggers a rescan")

	// The request proves the create event was processed, so sub is watched.
	write(t, filepath.Join(sub, "inner.md"))
	assert.True(t, awaitRequest(w, 3*time.Second), "writes inside a new directory trigger a rescan")
}

func TestWatcherIgnoresHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(hidden, 0o755))

	w := startWatcher(t, dir, 100*time.Millisecond)

	write(t, filepath.Join(hidden, "config"))
	write(t, filepath.Join(dir, ".scratch.md"))
	assert.False(t, awaitRequest(w, 700*time.Millisecond), "hidden activity must not trigger rescans")

	write(t, filepath.Join(dir, "visible.md"))
	assert.True(t, awaitRequest(w, 3*time.Second), "visible activity still gets through")
}

func TestWatcherCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Close()
	w.Close()
}
