package drop

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DeliversCreatedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "dropped.md")
	require.NoError(t, os.WriteFile(path, []byte("# dropped"), 0o644))

	select {
	case f := <-w.Files():
		assert.Equal(t, "dropped.md", f.Name)
		assert.Equal(t, int64(len("# dropped")), f.Size)
		assert.Equal(t, path, f.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no drop delivered")
	}
}

func TestWatcher_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	select {
	case f := <-w.Files():
		t.Fatalf("unexpected drop %q", f.Name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_MissingDir(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := Watch(t.TempDir(), 0)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
