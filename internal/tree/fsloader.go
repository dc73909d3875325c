package tree

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kyaoi/mdupload/internal/upload"
)

var errNotFile = errors.New("not a file")

// ignoredDirs are never descended into.
var ignoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
}

// FSLoader lists the uploadable files below root. Directories with no
// Markdown file anywhere beneath them are pruned from listings.
type FSLoader struct {
	root string
	fsys fs.FS

	// hasMarkdown caches HasMarkdown per slash-separated relative dir.
	hasMarkdown map[string]bool
}

// NewFSLoader creates a loader that reads from the provided root directory.
func NewFSLoader(root string) *FSLoader {
	return &FSLoader{
		root:        root,
		fsys:        os.DirFS(root),
		hasMarkdown: make(map[string]bool),
	}
}

// Root returns the directory the loader reads from.
func (l *FSLoader) Root() string {
	return l.root
}

// List returns the visible children of the directory at relPath.
func (l *FSLoader) List(relPath string) ([]*Node, error) {
	entries, err := fs.ReadDir(l.fsys, fsPath(relPath))
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		child := path.Join(relPath, name)
		switch {
		case entry.IsDir():
			if ignored(name) {
				continue
			}
			ok, err := l.HasMarkdown(child)
			if err != nil {
				return nil, err
			}
			if ok {
				nodes = append(nodes, &Node{Name: name, Path: child, IsDir: true})
			}
		case upload.IsMarkdownName(name):
			node := &Node{Name: name, Path: child}
			if info, err := entry.Info(); err == nil {
				node.Size = info.Size()
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// HasMarkdown reports whether the subtree at relPath holds a Markdown file.
func (l *FSLoader) HasMarkdown(relPath string) (bool, error) {
	if cached, ok := l.hasMarkdown[relPath]; ok {
		return cached, nil
	}

	found := false
	err := fs.WalkDir(l.fsys, fsPath(relPath), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != fsPath(relPath) && ignored(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if upload.IsMarkdownName(d.Name()) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	l.hasMarkdown[relPath] = found
	return found, nil
}

// Invalidate forgets every cached HasMarkdown answer.
func (l *FSLoader) Invalidate() {
	clear(l.hasMarkdown)
}

// File describes the file behind n for upload.
func (l *FSLoader) File(n *Node) (upload.File, error) {
	if n == nil || n.IsDir {
		return upload.File{}, errNotFile
	}
	return upload.LocalFile(filepath.Join(l.root, filepath.FromSlash(n.Path)))
}

func fsPath(relPath string) string {
	if relPath == "" {
		return "."
	}
	return relPath
}

func ignored(name string) bool {
	return ignoredDirs[strings.ToLower(name)]
}
