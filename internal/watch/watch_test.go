package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, w *Watcher, want string) {
	t.Helper()
	select {
	case got := <-w.Notify():
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported for %s", want)
	}
}

func TestReportsImageChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Trips"), 0o755))

	w, err := New(50*time.Millisecond, func(string) {})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchTree(root))
	assert.Equal(t, 2, w.Watching())

	// Several writes settle into one notification.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "Trips", "a.jpg"), []byte{byte(i)}, 0o644))
	}
	waitFor(t, w, filepath.Clean(root))

	select {
	case extra := <-w.Notify():
		t.Fatalf("unexpected second notification %s", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	w, err := New(30*time.Millisecond, func(string) {})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchTree(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	select {
	case got := <-w.Notify():
		t.Fatalf("non-image change reported for %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewSubfolderIsWatched(t *testing.T) {
	root := t.TempDir()
	w, err := New(30*time.Millisecond, func(string) {})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchTree(root))

	sub := filepath.Join(root, "New")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFor(t, w, filepath.Clean(root))
	require.Eventually(t, func() bool { return w.Watching() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.png"), []byte("x"), 0o644))
	waitFor(t, w, filepath.Clean(root))
}

func TestWatchTreeErrors(t *testing.T) {
	w, err := New(0, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.WatchTree(filepath.Join(t.TempDir(), "missing")))
	file := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, w.WatchTree(file))

	root := t.TempDir()
	require.NoError(t, w.WatchTree(root))
	w.Unwatch(root)
	assert.Equal(t, 0, w.Watching())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
