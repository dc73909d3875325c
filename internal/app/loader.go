package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kyaoi/mdupload/internal/tree"
	"github.com/kyaoi/mdupload/internal/ui"
	"github.com/kyaoi/mdupload/internal/upload"
)

// LoadInitialState analyses the target path and prepares the UI state.
// A directory becomes the picker root. A file is preselected and its
// directory becomes the picker root. An empty target means the working
// directory.
func LoadInitialState(target string) (ui.State, error) {
	if target == "" {
		target = "."
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return ui.State{}, err
	}
	info, err := os.Stat(absTarget)
	if err != nil {
		return ui.State{}, err
	}

	if info.IsDir() {
		state := browseState(absTarget)
		hasMarkdown, err := state.Loader.HasMarkdown("")
		if err != nil {
			return ui.State{}, err
		}
		if !hasMarkdown {
			state.Notice = fmt.Sprintf("%s にMarkdownファイルが見つかりません。", state.TreeRoot.Name)
		}
		return state, nil
	}

	file, err := upload.LocalFile(absTarget)
	if err != nil {
		return ui.State{}, err
	}
	state := browseState(filepath.Dir(absTarget))
	state.Preselected = []upload.File{file}
	state.SelectionPath = file.Name
	return state, nil
}

func browseState(dir string) ui.State {
	loader := tree.NewFSLoader(dir)
	return ui.State{
		TreeRoot: tree.NewRoot(filepath.Base(dir), loader),
		Loader:   loader,
	}
}
