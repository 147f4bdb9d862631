package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeflat/pkg/watch"
)

const waitFor = 5 * time.Second

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	w, err := watch.New(root, watch.Options{Extensions: []string{".sol"}})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	assert.True(t, w.Relevant(filepath.Join(root, "contracts", "A.sol")))
	assert.True(t, w.Relevant(filepath.Join(root, "A.SOL")))
	assert.False(t, w.Relevant(filepath.Join(root, "README.md")))
	assert.False(t, w.Relevant(filepath.Join(root, "node_modules", "x", "A.sol")))
	assert.False(t, w.Relevant(filepath.Join(root, ".git", "A.sol")))
}

func TestWatcher_DeliversDebouncedBatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "contracts"), 0o755))

	w, err := watch.New(root, watch.Options{Debounce: 50 * time.Millisecond, Extensions: []string{".sol"}})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	var (
		mu      sync.Mutex
		batches [][]string
	)

	delivered := make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			mu.Lock()
			batches = append(batches, changed)
			mu.Unlock()

			delivered <- struct{}{}

			return nil
		})
	}()

	target := filepath.Join(root, "contracts", "A.sol")
	require.NoError(t, os.WriteFile(target, []byte("contract A {}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("contract A { }"), 0o600))

	select {
	case <-delivered:
	case <-time.After(waitFor):
		t.Fatal("no batch delivered")
	}

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()

	require.NotEmpty(t, batches)
	assert.Equal(t, []string{target}, batches[0])
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	w, err := watch.New(root, watch.Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	changes := make(chan []string, 8)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = w.Run(ctx, func(_ context.Context, changed []string) error {
			changes <- changed

			return nil
		})
	}()

	dir := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(dir, 0o755))

	target := filepath.Join(dir, "B.sol")
	deadline := time.After(waitFor)

	// The new directory is registered asynchronously; keep writing until seen.
	for {
		require.NoError(t, os.WriteFile(target, []byte("contract B {}"), 0o600))

		select {
		case changed := <-changes:
			if assert.ObjectsAreEqual([]string{target}, changed) {
				return
			}
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("change in new directory not delivered")
		}
	}
}

func TestWatcher_ClosedWhileRunning(t *testing.T) {
	t.Parallel()

	w, err := watch.New(t.TempDir(), watch.Options{})
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- w.Run(context.Background(), func(context.Context, []string) error { return nil })
	}()

	require.NoError(t, w.Close())

	select {
	case err = <-done:
		require.ErrorIs(t, err, watch.ErrClosed)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after Close")
	}
}

func TestNew_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := watch.New(filepath.Join(t.TempDir(), "absent"), watch.Options{})
	require.Error(t, err)
}
