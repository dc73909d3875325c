package ui

import (
	"context"

	"github.com/kyaoi/mdupload/internal/tree"
	"github.com/kyaoi/mdupload/internal/upload"
)

// State contains the data required to bootstrap the Bubble Tea model.
type State struct {
	// TreeRoot and Loader back the file picker. Both nil disables browsing.
	TreeRoot *tree.Node
	Loader   *tree.FSLoader

	// SelectionPath is the slash-separated path, relative to TreeRoot, the
	// picker highlights when it first opens.
	SelectionPath string

	// Notice is shown once below the header until the next key press.
	Notice string

	// Preselected is selected at startup as if picked from the file input.
	Preselected []upload.File

	// Health runs once at startup. A non-nil error shows a warning banner.
	Health func(ctx context.Context) (string, error)

	// Drops delivers files from the drop folder, if one is watched.
	Drops <-chan upload.File

	// Context bounds every network call started from the UI.
	Context context.Context
}
