// Package upload holds the client side of the Markdown conversion workflow:
// the session, the five panels, file validation and the operations that move
// a session from selection to download. Nothing here knows about a terminal;
// front ends drive it through an EventSource and render the Session they get
// back.
package upload

import (
	"io"
	"os"
	"path/filepath"
)

// Panel identifies one of the mutually exclusive workflow regions.
type Panel int

const (
	PanelUpload Panel = iota
	PanelOptions
	PanelProgress
	PanelResult
	PanelError
)

// Panels lists every panel in display order.
var Panels = []Panel{PanelUpload, PanelOptions, PanelProgress, PanelResult, PanelError}

// ID returns the fixed element identifier of the panel.
func (p Panel) ID() string {
	switch p {
	case PanelUpload:
		return "uploadSection"
	case PanelOptions:
		return "optionsSection"
	case PanelProgress:
		return "progressSection"
	case PanelResult:
		return "resultSection"
	case PanelError:
		return "errorSection"
	default:
		return ""
	}
}

func (p Panel) String() string { return p.ID() }

const (
	// TOCDepth is sent with every conversion request.
	TOCDepth = 3
	// DefaultHighlightStyle is the highlight style restored on reset.
	DefaultHighlightStyle = "tango"
	// MaxFileSize is the largest accepted upload (50 MiB).
	MaxFileSize int64 = 50 * 1024 * 1024
	// PromptText is the status line shown while nothing is selected.
	PromptText = "Markdown ファイルをここにドロップ"
)

// HighlightStyles is the fixed set of code highlight styles the server accepts.
var HighlightStyles = []string{
	"pygments",
	"tango",
	"espresso",
	"zenburn",
	"kate",
	"monochrome",
	"breezedark",
	"haddock",
}

// IsHighlightStyle reports whether name belongs to HighlightStyles.
func IsHighlightStyle(name string) bool {
	for _, s := range HighlightStyles {
		if s == name {
			return true
		}
	}
	return false
}

// ConversionOptions mirrors the option controls. It is read when a
// conversion is submitted.
type ConversionOptions struct {
	GenerateTOC    bool
	TOCDepth       int
	HighlightStyle string
}

// DefaultOptions returns the option control defaults.
func DefaultOptions() ConversionOptions {
	return ConversionOptions{
		GenerateTOC:    true,
		TOCDepth:       TOCDepth,
		HighlightStyle: DefaultHighlightStyle,
	}
}

// File is a user-chosen file.
type File struct {
	Name string
	Size int64
	Path string
	// Open returns the file content. When nil, Path is opened.
	Open func() (io.ReadCloser, error)
}

// Reader opens the file content.
func (f File) Reader() (io.ReadCloser, error) {
	if f.Open != nil {
		return f.Open()
	}
	return os.Open(f.Path)
}

// LocalFile describes the file at path.
func LocalFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Path: path,
	}, nil
}

// Session is the whole mutable state of one client. Operations take a
// Session and return the next one.
type Session struct {
	SelectedFile *File
	DownloadURL  string
	Filename     string

	Panel      Panel
	Status     string
	ErrorText  string
	ResultText string
	DropActive bool
	Options    ConversionOptions
}

// NewSession returns the initial session: Upload panel, default options.
func NewSession() Session {
	return Session{
		Panel:   PanelUpload,
		Status:  PromptText,
		Options: DefaultOptions(),
	}
}

// Show makes p the only visible panel.
func (s Session) Show(p Panel) Session {
	s.Panel = p
	return s
}

// Visible reports whether p is the visible panel.
func (s Session) Visible(p Panel) bool {
	return s.Panel == p
}

// ShowError switches to the Error panel with message.
func (s Session) ShowError(message string) Session {
	s.ErrorText = message
	return s.Show(PanelError)
}
