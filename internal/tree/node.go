// Package tree models the directory tree the file picker browses.
package tree

import (
	"sort"
	"strings"
)

// Loader retrieves child entries for a particular node path.
type Loader interface {
	List(path string) ([]*Node, error)
}

// Node is a directory or a Markdown file under the picker root.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Size     int64
	Open     bool
	Parent   *Node
	Children []*Node

	loader Loader
	loaded bool
}

// NewRoot creates the root node for the tree.
func NewRoot(name string, loader Loader) *Node {
	return &Node{
		Name:   name,
		Path:   "",
		IsDir:  true,
		Open:   true,
		loader: loader,
	}
}

// ChildByName returns the child node with the given name if it exists.
func (n *Node) ChildByName(name string) *Node {
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Reveal loads and opens every directory on the slash-separated relPath
// below n and returns the node at its end, or nil when any part is missing.
func (n *Node) Reveal(relPath string) (*Node, error) {
	current := n
	for _, part := range strings.Split(relPath, "/") {
		if part == "" {
			continue
		}
		if err := current.EnsureLoaded(); err != nil {
			return nil, err
		}
		child := current.ChildByName(part)
		if child == nil {
			return nil, nil
		}
		if child.IsDir {
			child.Open = true
		}
		current = child
	}
	return current, nil
}

// EnsureLoaded lazily loads child entries for directory nodes.
func (n *Node) EnsureLoaded() error {
	if !n.IsDir || n.loaded || n.loader == nil {
		return nil
	}

	children, err := n.loader.List(n.Path)
	if err != nil {
		return err
	}

	n.Children = children
	for _, child := range n.Children {
		child.Parent = n
		child.loader = n.loader
	}
	n.sortChildren()
	n.loaded = true
	return nil
}

// Reload drops loaded children so the next EnsureLoaded reads them again.
func (n *Node) Reload() {
	n.Children = nil
	n.loaded = false
}

// Flatten lists the visible nodes depth first, starting with n itself.
// Closed directories hide their children. Load errors stop the walk and are
// returned with what was collected so far.
func (n *Node) Flatten() ([]Entry, error) {
	var entries []Entry
	var walk func(*Node, int) error
	walk = func(node *Node, depth int) error {
		entries = append(entries, Entry{Node: node, Depth: depth})
		if !node.IsDir || !node.Open {
			return nil
		}
		if err := node.EnsureLoaded(); err != nil {
			return err
		}
		for _, child := range node.Children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	err := walk(n, 0)
	return entries, err
}

// Entry is one visible row of a flattened tree.
type Entry struct {
	Node  *Node
	Depth int
}

// Label renders the row the way the picker shows it.
func (e Entry) Label() string {
	if e.Depth == 0 {
		return e.Node.Name + "/"
	}
	indent := strings.Repeat("  ", e.Depth-1)
	indicator := "  "
	if e.Node.IsDir {
		if e.Node.Open {
			indicator = "- "
		} else {
			indicator = "+ "
		}
	}
	label := indent + indicator + e.Node.Name
	if e.Node.IsDir {
		label += "/"
	}
	return label
}

func (n *Node) sortChildren() {
	sort.Slice(n.Children, func(i, j int) bool {
		ci, cj := n.Children[i], n.Children[j]
		switch {
		case ci.IsDir == cj.IsDir:
			return strings.ToLower(ci.Name) < strings.ToLower(cj.Name)
		case ci.IsDir:
			return true
		default:
			return false
		}
	})
}
