package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloads struct {
	mu    sync.Mutex
	files []string
}

func (r *reloads) add(file string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, file)
}

func (r *reloads) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

func startWatcher(t *testing.T, dirs []string, debounce time.Duration) *reloads {
	t.Helper()
	got := &reloads{}
	w, err := New(dirs, debounce, got.add)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return got
}

func TestReloadOnConfigWrite(t *testing.T) {
	dir := t.TempDir()
	got := startWatcher(t, []string{dir}, 20*time.Millisecond)

	path := filepath.Join(dir, "lombridge.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0644))

	assert.Eventually(t, func() bool { return len(got.get()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, path, got.get()[0])
}

func TestBurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	got := startWatcher(t, []string{dir}, 150*time.Millisecond)

	path := filepath.Join(dir, "lombridge.yml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0644))
	}

	assert.Eventually(t, func() bool { return len(got.get()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, got.get(), 1)
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	got := startWatcher(t, []string{dir}, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yml"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, got.get())
}

func TestSymlinkTargetMapsToLink(t *testing.T) {
	dir := t.TempDir()
	targetDir := t.TempDir()
	target := filepath.Join(targetDir, "shared.yml")
	require.NoError(t, os.WriteFile(target, []byte("version: \"1.0\"\n"), 0644))
	link := filepath.Join(dir, "lombridge.yml")
	require.NoError(t, os.Symlink(target, link))

	got := startWatcher(t, []string{dir}, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(target, []byte("version: \"1.0\"\n# edit\n"), 0644))
	assert.Eventually(t, func() bool { return len(got.get()) >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, link, got.get()[0])
}

func TestNoWatchableDirectory(t *testing.T) {
	_, err := New([]string{"", filepath.Join(t.TempDir(), "missing")}, 0, nil)
	assert.Error(t, err)
}
