// Package uitree models a single uiautomator view hierarchy dump as an
// immutable tree of nodes and provides search helpers over it.
package uitree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
)

// Bounds is the on-screen rectangle of a node in absolute pixels.
type Bounds struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Center returns the tap target for the rectangle.
func (b Bounds) Center() (int, int) {
	return (b.Left + b.Right) / 2, (b.Top + b.Bottom) / 2
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.Left, b.Top, b.Right, b.Bottom)
}

// Node is one view in a dumped hierarchy. Nodes are never mutated after
// parsing; a fresh dump produces a fresh tree.
type Node struct {
	Class       string
	Text        string
	ContentDesc string
	ResourceID  string
	Bounds      Bounds
	Focused     bool
	Selected    bool
	Children    []*Node
}

// Snapshot is one immutable capture of the screen, valid until the next
// dump replaces it.
type Snapshot struct {
	Root   *Node
	parent map[*Node]*Node
}

// NewSnapshot builds a snapshot (and its parent index) around an existing
// node tree. Used by the dump parser and by tests that construct trees
// directly.
func NewSnapshot(root *Node) *Snapshot {
	s := &Snapshot{
		Root:   root,
		parent: map[*Node]*Node{},
	}
	var index func(n *Node)
	index = func(n *Node) {
		for _, child := range n.Children {
			s.parent[child] = n
			index(child)
		}
	}
	if root != nil {
		index(root)
	}
	return s
}

// Parent returns the immediate parent of n, or nil for the root or for
// nodes that do not belong to this snapshot.
func (s *Snapshot) Parent(n *Node) *Node {
	return s.parent[n]
}

var boundsRegex = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// ParseBounds parses the uiautomator bounds attribute, e.g.
// "[42,1023][126,1080]".
func ParseBounds(s string) (Bounds, error) {
	groups := boundsRegex.FindStringSubmatch(s)
	if len(groups) != 5 {
		return Bounds{}, fmt.Errorf("malformed bounds %q", s)
	}
	nums := make([]int, 4)
	for i, g := range groups[1:] {
		n, err := strconv.Atoi(g)
		if err != nil {
			return Bounds{}, fmt.Errorf("malformed bounds %q: %w", s, err)
		}
		nums[i] = n
	}
	return Bounds{Left: nums[0], Top: nums[1], Right: nums[2], Bottom: nums[3]}, nil
}

type xmlNode struct {
	Class       string    `xml:"class,attr"`
	Text        string    `xml:"text,attr"`
	ContentDesc string    `xml:"content-desc,attr"`
	ResourceID  string    `xml:"resource-id,attr"`
	Bounds      string    `xml:"bounds,attr"`
	Focused     string    `xml:"focused,attr"`
	Selected    string    `xml:"selected,attr"`
	Children    []xmlNode `xml:"node"`
}

type xmlHierarchy struct {
	Nodes []xmlNode `xml:"node"`
}

// Parse reads a raw `uiautomator dump` document into a Snapshot. Dumps
// occasionally carry shell noise before the XML declaration, so parsing
// starts at the first '<'.
func Parse(dump []byte) (*Snapshot, error) {
	start := bytes.IndexByte(dump, '<')
	if start < 0 {
		return nil, fmt.Errorf("no xml content in dump (%d bytes)", len(dump))
	}

	var h xmlHierarchy
	if err := xml.Unmarshal(dump[start:], &h); err != nil {
		return nil, fmt.Errorf("parse ui dump: %w", err)
	}
	if len(h.Nodes) == 0 {
		return nil, fmt.Errorf("ui dump has no nodes")
	}

	root := &Node{Class: "hierarchy"}
	for _, x := range h.Nodes {
		child, err := fromXML(x)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, child)
	}
	return NewSnapshot(root), nil
}

func fromXML(x xmlNode) (*Node, error) {
	n := &Node{
		Class:       x.Class,
		Text:        x.Text,
		ContentDesc: x.ContentDesc,
		ResourceID:  x.ResourceID,
		Focused:     x.Focused == "true",
		Selected:    x.Selected == "true",
	}
	if x.Bounds != "" {
		b, err := ParseBounds(x.Bounds)
		if err != nil {
			return nil, err
		}
		n.Bounds = b
	}
	for _, c := range x.Children {
		child, err := fromXML(c)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// FindDescendants collects every node under n (n excluded) matching pred,
// in depth-first pre-order.
func FindDescendants(n *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, child := range n.Children {
			if pred(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// FindSiblings collects the siblings of n (n excluded) under its immediate
// parent matching pred, in sibling order.
func (s *Snapshot) FindSiblings(n *Node, pred func(*Node) bool) []*Node {
	parent := s.Parent(n)
	if parent == nil {
		return nil
	}
	var out []*Node
	for _, sibling := range parent.Children {
		if sibling == n {
			continue
		}
		if pred(sibling) {
			out = append(out, sibling)
		}
	}
	return out
}

// Focused returns the node currently holding focus or selection, or nil.
// When the dump reports more than one such node the first in pre-order
// wins; see the package tests for the tie-break contract.
func (s *Snapshot) Focused() *Node {
	if s.Root == nil {
		return nil
	}
	if s.Root.Focused || s.Root.Selected {
		return s.Root
	}
	matches := FindDescendants(s.Root, func(n *Node) bool {
		return n.Focused || n.Selected
	})
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// Ancestor walks up from n and returns the first ancestor (n included)
// matching pred, or nil.
func (s *Snapshot) Ancestor(n *Node, pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = s.Parent(cur) {
		if pred(cur) {
			return cur
		}
	}
	return nil
}
