package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/confit/pkg/paths"
)

func waitForRuns(t *testing.T, runs *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if runs.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected at least %d runs, got %d", want, runs.Load())
}

func TestWatch_InitialRunAndChangeTrigger(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "packages"), 0755))
	pather, err := paths.New(root)
	require.NoError(t, err)

	var runs atomic.Int32
	w := New(pather, 50*time.Millisecond, func() error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	waitForRuns(t, &runs, 1)

	require.NoError(t, os.WriteFile(
		filepath.Join(root, "packages", "x.fragment.json"),
		[]byte(`{"_targetPath": "x.json", "a": 1}`), 0644))
	waitForRuns(t, &runs, 2)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatch_BurstCoalesced(t *testing.T) {
	root := t.TempDir()
	pather, err := paths.New(root)
	require.NoError(t, err)

	var runs atomic.Int32
	w := New(pather, 150*time.Millisecond, func() error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	waitForRuns(t, &runs, 1)

	// Several writes inside one debounce window collapse into one run
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(
			filepath.Join(root, "a.overrides.json"), []byte(`{"n": 1}`), 0644))
		time.Sleep(10 * time.Millisecond)
	}
	waitForRuns(t, &runs, 2)
	time.Sleep(300 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), int32(3), "burst must coalesce instead of running per event")
}

func TestIgnore(t *testing.T) {
	root := t.TempDir()
	pather, err := paths.New(root)
	require.NoError(t, err)
	w := New(pather, 0, func() error { return nil })

	assert.True(t, w.ignore(filepath.Join(root, ".app.json.confit.tmp")))
	assert.True(t, w.ignore(filepath.Join(root, "node_modules", "pkg", "index.js")))
	assert.False(t, w.ignore(filepath.Join(root, "packages", "x.fragment.json")))
}

func TestNew_DebounceDefault(t *testing.T) {
	root := t.TempDir()
	pather, err := paths.New(root)
	require.NoError(t, err)

	w := New(pather, 0, func() error { return nil })
	assert.Equal(t, DefaultDebounce, w.debounce)
}
