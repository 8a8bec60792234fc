package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.jpg"))
	touch(t, filepath.Join(root, "a.PNG"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.webp"))
	touch(t, filepath.Join(root, ".hidden.jpg"))
	touch(t, filepath.Join(root, ".cache", "d.jpg"))
	touch(t, filepath.Join(root, "raw", "e.heic"))
	return root
}

func TestScanDirectory(t *testing.T) {
	root := sampleTree(t)

	results, stats, err := ScanDirectory(root, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.PNG"),
		filepath.Join(root, "b.jpg"),
		filepath.Join(root, "sub", "c.webp"),
	}, Paths(results))
	assert.EqualValues(t, 3, stats.Matched)
	assert.Zero(t, stats.Failed)
	assert.NotZero(t, stats.Scanned)
}

func TestScanDirectory_IncludeHidden(t *testing.T) {
	root := sampleTree(t)
	results, _, err := ScanDirectory(root, []string{".jpg"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, ".cache", "d.jpg"),
		filepath.Join(root, ".hidden.jpg"),
		filepath.Join(root, "b.jpg"),
	}, Paths(results))
}

func TestScanDirectory_CustomExtensions(t *testing.T) {
	root := sampleTree(t)
	results, _, err := ScanDirectory(root, []string{"HEIC", " "}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "raw", "e.heic")}, Paths(results))
}

func TestScanDirectory_Errors(t *testing.T) {
	_, _, err := ScanDirectory("  ", nil, true)
	assert.Error(t, err)

	_, _, err = ScanDirectory(filepath.Join(t.TempDir(), "missing"), nil, true)
	assert.Error(t, err)
}

func TestPaths_SkipsFailures(t *testing.T) {
	got := Paths([]FileResult{{Path: "a.jpg"}, {Path: "b.jpg", Err: "permission denied"}})
	assert.Equal(t, []string{"a.jpg"}, got)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/x/.git"))
	assert.False(t, IsHidden("/x/photo.jpg"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden(".."))
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		SkipHidden:  true,
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	assert.Equal(t, filepath.Join(root, "existing.jpg"), next())

	touch(t, filepath.Join(root, "ignored.txt"))
	touch(t, filepath.Join(root, ".secret.jpg"))
	touch(t, filepath.Join(root, "new.png"))
	assert.Equal(t, filepath.Join(root, "new.png"), next())

	cancel()
	for range events {
	}
}
