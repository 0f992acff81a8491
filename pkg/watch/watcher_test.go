package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/procmine/pkg/errors"
)

func TestWatcher_OnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 a 0\n"), 0o644))

	w, err := NewWatcher(WithDebounce(20 * time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	changed := make(chan string, 4)
	w.OnChange = func(ctx context.Context, p string) error {
		changed <- p
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch loop a moment before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("1 a 0\n1 b 0\n"), 0o644))

	select {
	case p := <-changed:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, p)
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_RunWaitsForOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 a 0\n"), 0o644))

	w, err := NewWatcher(WithDebounce(10 * time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	w.OnChange = func(context.Context, string) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("1 a 0\n1 b 0\n"), 0o644))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange not called")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while OnChange was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after OnChange finished")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 a 0\n"), 0o644))

	w, err := NewWatcher(WithDebounce(10 * time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	called := make(chan struct{}, 1)
	w.OnChange = func(context.Context, string) error {
		called <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	select {
	case <-called:
		t.Fatal("OnChange called for an unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	err = w.Watch(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, errors.IsCode(err, errors.CodeFileNotFound), "got %v", err)
	assert.Empty(t, w.Paths())
}
