// Package tree reconstructs a navigable forest from the flat set of
// persisted topic nodes and renders it for display.
package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentic-research/gitlore/api"
)

// Tree is an immutable forest view over one set of topic nodes.
// Construction is two linear passes: id→node index, then child-list
// assembly. A node whose parent id is absent from the supplied set
// (e.g. a filtered view) is treated as a synthetic root and reported
// via Dangling, never as an error.
type Tree struct {
	index    map[string]api.TopicNode
	children map[string][]api.TopicNode
	roots    []api.TopicNode
	dangling []string
}

// Build constructs a Tree from a flat node set.
func Build(nodes []api.TopicNode) *Tree {
	t := &Tree{
		index:    make(map[string]api.TopicNode, len(nodes)),
		children: make(map[string][]api.TopicNode),
	}
	for _, n := range nodes {
		t.index[n.ID] = n
	}
	for _, n := range nodes {
		switch {
		case n.ParentID == "":
			t.roots = append(t.roots, n)
		default:
			if _, ok := t.index[n.ParentID]; !ok {
				// Dangling ancestor: degrade to synthetic root.
				t.dangling = append(t.dangling, n.ID)
				t.roots = append(t.roots, n)
				continue
			}
			t.children[n.ParentID] = append(t.children[n.ParentID], n)
		}
	}
	sortNodes(t.roots)
	for _, kids := range t.children {
		sortNodes(kids)
	}
	return t
}

// sortNodes orders siblings by creation time, then name, then id, so
// two builds over the same input are structurally identical.
func sortNodes(nodes []api.TopicNode) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// Roots returns the forest roots, including synthetic ones.
func (t *Tree) Roots() []api.TopicNode {
	return append([]api.TopicNode(nil), t.roots...)
}

// ChildrenOf returns the direct children of id in stable order.
func (t *Tree) ChildrenOf(id string) []api.TopicNode {
	return append([]api.TopicNode(nil), t.children[id]...)
}

// Dangling lists ids of nodes whose parent was missing from the
// supplied set and were degraded to synthetic roots.
func (t *Tree) Dangling() []string {
	return append([]string(nil), t.dangling...)
}

// AncestorPath returns the root-to-node chain for id, following parent
// pointers until a nil parent or a parent absent from the supplied set.
// Returns nil if id itself is not in the set.
func (t *Tree) AncestorPath(id string) []api.TopicNode {
	n, ok := t.index[id]
	if !ok {
		return nil
	}
	path := []api.TopicNode{n}
	for len(path) <= len(t.index) {
		if n.ParentID == "" {
			break
		}
		parent, ok := t.index[n.ParentID]
		if !ok {
			break
		}
		path = append(path, parent)
		n = parent
	}
	// Reverse to root-first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Render returns a depth-first, pre-order indented text representation:
//
//	Python (id)
//	├── Asyncio (id)
//	│   └── TaskGroups (id)
//	└── Typing (id)
func (t *Tree) Render() string {
	var sb strings.Builder
	for _, root := range t.roots {
		fmt.Fprintf(&sb, "%s (%s)\n", root.Name, root.ID)
		t.renderChildren(&sb, root.ID, "")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (t *Tree) renderChildren(sb *strings.Builder, id, prefix string) {
	kids := t.children[id]
	for i, kid := range kids {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(kids)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		fmt.Fprintf(sb, "%s%s%s (%s)\n", prefix, connector, kid.Name, kid.ID)
		t.renderChildren(sb, kid.ID, childPrefix)
	}
}
