package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInitialState_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A"), 0o644))

	state, err := LoadInitialState(dir)
	require.NoError(t, err)
	require.NotNil(t, state.TreeRoot)
	require.NotNil(t, state.Loader)
	assert.Equal(t, filepath.Base(dir), state.TreeRoot.Name)
	assert.Empty(t, state.Notice)
	assert.Empty(t, state.Preselected)
}

func TestLoadInitialState_DirectoryWithoutMarkdown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	state, err := LoadInitialState(dir)
	require.NoError(t, err)
	assert.Contains(t, state.Notice, "Markdownファイルが見つかりません")
}

func TestLoadInitialState_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# A"), 0o644))

	state, err := LoadInitialState(path)
	require.NoError(t, err)
	require.Len(t, state.Preselected, 1)
	assert.Equal(t, "a.md", state.Preselected[0].Name)
	assert.Equal(t, int64(3), state.Preselected[0].Size)
	assert.Equal(t, "a.md", state.SelectionPath)
	assert.Equal(t, dir, state.Loader.Root())
}

func TestLoadInitialState_EmptyTargetUsesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	state, err := LoadInitialState("")
	require.NoError(t, err)
	require.NotNil(t, state.Loader)
	assert.Equal(t, filepath.Base(dir), state.TreeRoot.Name)
}

func TestLoadInitialState_Missing(t *testing.T) {
	_, err := LoadInitialState(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
