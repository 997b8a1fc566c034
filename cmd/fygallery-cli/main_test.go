package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fygallery/internal/config"
	"fygallery/internal/export"
	"fygallery/internal/storage"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writePNG writes a w x h PNG to dir/rel, creating parent directories.
func writePNG(t *testing.T, dir, rel string, w, h int) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return p
}

// setupFolder creates Photos/Trips/a.png, Photos/Trips/b.png and Photos/Home/c.png
// and returns the Photos folder.
func setupFolder(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Photos")
	writePNG(t, root, "Trips/a.png", 4, 3)
	writePNG(t, root, "Trips/b.png", 8, 6)
	writePNG(t, root, "Home/c.png", 2, 2)
	return root
}

// isolate keeps the user's config file and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{"FYGALLERY_PAGE_SIZE", "FYGALLERY_SLIDESHOW_INTERVAL", "FYGALLERY_CONCURRENCY",
		"FYGALLERY_IDS", "FYGALLERY_STORAGE", "FYGALLERY_DB", "FYGALLERY_THEME"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// syncBuffer is a bytes.Buffer safe for a reader and a writer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// memoryRoot returns a root command whose every run shares kv.
func memoryRoot(kv storage.KV) *cobra.Command {
	return NewRootCmd(func(config.Config) (storage.KV, error) { return kv, nil })
}

// executeCommandC executes a cobra command and captures its output.
// It sets the arguments for the rootCmd and then executes it.
// Standard output and standard error are captured.
func executeCommandC(root *cobra.Command, args ...string) (string, string, error) {
	return executeCommandContext(context.Background(), root, args...)
}

func executeCommandContext(ctx context.Context, root *cobra.Command, args ...string) (string, string, error) {
	actualStdout := new(bytes.Buffer)
	actualStderr := new(bytes.Buffer)
	root.SetOut(actualStdout)
	root.SetErr(actualStderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)

	return actualStdout.String(), actualStderr.String(), err
}

func TestRootHelp(t *testing.T) {
	isolate(t)
	stdout, stderr, err := executeCommandC(memoryRoot(storage.NewMemory()), "--help")
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "fygallery-cli [command]")
}

func TestListCommand(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	kv := storage.NewMemory()

	t.Run("everything", func(t *testing.T) {
		stdout, stderr, err := executeCommandC(memoryRoot(kv), "-f", folder, "list")
		require.NoError(t, err, "stderr: %s", stderr)
		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "a.png\t"))
		assert.True(t, strings.HasPrefix(lines[1], "b.png\t"))
		assert.True(t, strings.HasPrefix(lines[2], "c.png\t"))
		assert.Contains(t, lines[0], "4×3")
		assert.Contains(t, lines[0], "Trips")
		assert.Contains(t, lines[2], "Home")
		assert.Equal(t, "3 photos", lines[3])
	})

	t.Run("album", func(t *testing.T) {
		stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "list", "--album", "Trips")
		require.NoError(t, err)
		assert.NotContains(t, stdout, "c.png")
		assert.Contains(t, stdout, "2 photos")
	})

	t.Run("unknown album", func(t *testing.T) {
		stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "list", "--album", "Nope")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No images found.")
	})

	t.Run("search", func(t *testing.T) {
		stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "list", "--search", "C")
		require.NoError(t, err)
		assert.Contains(t, stdout, "c.png")
		assert.Contains(t, stdout, "1 photo\n")
	})

	t.Run("no match", func(t *testing.T) {
		stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "list", "--search", "zzz")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No images found.")
		assert.Contains(t, stdout, "0 photos")
	})
}

func TestListPaging(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	t.Setenv("FYGALLERY_PAGE_SIZE", "2")
	kv := storage.NewMemory()

	stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "b.png")
	assert.NotContains(t, stdout, "c.png")
	assert.Contains(t, stdout, "(more: --page 2)")

	stdout, _, err = executeCommandC(memoryRoot(kv), "-f", folder, "list", "--page", "2")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "a.png")
	assert.Contains(t, stdout, "c.png")
	assert.NotContains(t, stdout, "(more")

	stdout, _, err = executeCommandC(memoryRoot(kv), "-f", folder, "--page-size", "1", "list", "--page", "3")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "b.png")
	assert.Contains(t, stdout, "c.png")

	stdout, _, err = executeCommandC(memoryRoot(kv), "-f", folder, "list", "--all")
	require.NoError(t, err)
	for _, n := range []string{"a.png", "b.png", "c.png"} {
		assert.Contains(t, stdout, n)
	}
}

func TestAlbumsCommand(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	stdout, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "-f", folder, "albums")
	require.NoError(t, err)
	assert.Equal(t, "all (3)\nTrips (2)\nHome (1)\n", stdout)

	single := filepath.Join(t.TempDir(), "Solo")
	writePNG(t, single, "x.png", 1, 1)
	stdout, _, err = executeCommandC(memoryRoot(storage.NewMemory()), "-f", single, "albums")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No albums to choose from.")
}

func TestInfoCommand(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	stdout, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "-f", folder, "info", "b.png")
	require.NoError(t, err)
	assert.Contains(t, stdout, "b.png [2/3]")
	assert.Contains(t, stdout, "8×6 • Trips")
	assert.Contains(t, stdout, "favorite: false")

	_, _, err = executeCommandC(memoryRoot(storage.NewMemory()), "-f", folder, "info", "missing.png")
	assert.ErrorContains(t, err, "no image matches")
}

func TestFavoritePersists(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	t.Setenv("FYGALLERY_STORAGE", "bolt")
	t.Setenv("FYGALLERY_DB", filepath.Join(t.TempDir(), "prefs.db"))
	t.Setenv("FYGALLERY_IDS", "stable")

	stdout, stderr, err := executeCommandC(NewRootCmd(openStorage), "-f", folder, "favorite", "Photos/Trips/a.png")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "Added a.png to favorites\n", stdout)

	stdout, _, err = executeCommandC(NewRootCmd(openStorage), "-f", folder, "list", "--favorites-only")
	require.NoError(t, err)
	assert.Contains(t, stdout, "a.png")
	assert.Contains(t, stdout, "★")
	assert.NotContains(t, stdout, "b.png")
	assert.Contains(t, stdout, "1 photo • 1 favorite")

	stdout, _, err = executeCommandC(NewRootCmd(openStorage), "-f", folder, "favorites")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\ta.png")

	stdout, _, err = executeCommandC(NewRootCmd(openStorage), "-f", folder, "favorite", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "Removed a.png from favorites\n", stdout)

	stdout, _, err = executeCommandC(NewRootCmd(openStorage), "favorites")
	require.NoError(t, err)
	assert.Equal(t, "No favorites.\n", stdout)
}

func TestThemeCommand(t *testing.T) {
	isolate(t)
	kv := storage.NewMemory()

	stdout, _, err := executeCommandC(memoryRoot(kv), "theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", stdout)

	stdout, _, err = executeCommandC(memoryRoot(kv), "theme", "dark")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", stdout)

	stdout, _, err = executeCommandC(memoryRoot(kv), "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", stdout, "the choice is saved")

	stdout, _, err = executeCommandC(memoryRoot(kv), "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "light\n", stdout)

	_, _, err = executeCommandC(memoryRoot(kv), "theme", "sepia")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	kv := storage.NewMemory()

	t.Run("yaml", func(t *testing.T) {
		stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "export", "--format", "yaml", "--album", "Trips")
		require.NoError(t, err)
		var sheet export.Sheet
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &sheet))
		require.Len(t, sheet.Images, 2)
		assert.Equal(t, "a.png", sheet.Images[0].Name)
	})

	t.Run("html", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "sheet.html")
		_, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "export", "-o", out)
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "3 photos")
		assert.Contains(t, string(data), "c.png")
	})

	t.Run("parquet", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "images.parquet")
		stdout, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "export", "-F", "parquet", "-o", out)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Wrote 3 rows")
		rows, err := export.ReadParquet(out)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("parquet needs a file", func(t *testing.T) {
		_, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "export", "-F", "parquet")
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := executeCommandC(memoryRoot(kv), "-f", folder, "export", "-F", "csv")
		assert.ErrorContains(t, err, "unknown format")
	})
}

func TestSaveCommand(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)
	dest := t.TempDir()

	stdout, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "-f", folder, "save", "c.png", "--dir", dest)
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(dest, "c.png"))

	want, err := os.ReadFile(filepath.Join(folder, "Home", "c.png"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dest, "c.png"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, _, err = executeCommandC(memoryRoot(storage.NewMemory()), "-f", folder, "download", "c.png", "--dir", dest)
	assert.Error(t, err, "an existing file is not overwritten")
}

func TestSlideshowCommand(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)

	stdout, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "-f", folder, "slideshow", "-n", "4", "-i", "100ms")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "a.png"))
	assert.True(t, strings.HasPrefix(lines[1], "b.png"))
	assert.True(t, strings.HasPrefix(lines[2], "c.png"))
	assert.True(t, strings.HasPrefix(lines[3], "a.png"), "the slideshow wraps around")
}

func TestWatchCommandReloads(t *testing.T) {
	isolate(t)
	folder := setupFolder(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	root := memoryRoot(storage.NewMemory())
	out := &syncBuffer{}
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"-f", folder, "watch", "--debounce", "50ms"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "3 photos") }, 3*time.Second, 20*time.Millisecond)
	writePNG(t, folder, "Home/d.png", 2, 2)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "4 photos") }, 4*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestErrors(t *testing.T) {
	isolate(t)

	t.Run("no folders", func(t *testing.T) {
		_, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "list")
		assert.ErrorContains(t, err, "no folders given")
	})

	t.Run("explicit config missing", func(t *testing.T) {
		_, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "--config", filepath.Join(t.TempDir(), "none.yaml"), "theme")
		require.Error(t, err)
		assert.Equal(t, config.ErrCodeNotFound, config.Code(err))
	})

	t.Run("folders from config", func(t *testing.T) {
		folder := setupFolder(t)
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("folders:\n  - "+folder+"\npage_size: 1\n"), 0o644))
		stdout, _, err := executeCommandC(memoryRoot(storage.NewMemory()), "--config", cfgPath, "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "a.png")
		assert.NotContains(t, stdout, "b.png")
		assert.Contains(t, stdout, "3 photos")
	})
}
