package tree

import (
	"strings"
	"testing"
	"time"

	"github.com/agentic-research/gitlore/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func node(id, name, parentID string, offset int) api.TopicNode {
	return api.TopicNode{
		ID:        id,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}
}

func TestBuildChain(t *testing.T) {
	nodes := []api.TopicNode{
		node("a", "A", "", 0),
		node("b", "B", "a", 1),
		node("c", "C", "b", 2),
	}
	tr := Build(nodes)

	kids := tr.ChildrenOf("a")
	require.Len(t, kids, 1)
	assert.Equal(t, "b", kids[0].ID)

	kids = tr.ChildrenOf("b")
	require.Len(t, kids, 1)
	assert.Equal(t, "c", kids[0].ID)

	assert.Empty(t, tr.ChildrenOf("c"))

	path := tr.AncestorPath("c")
	require.Len(t, path, 3)
	assert.Equal(t, "a", path[0].ID)
	assert.Equal(t, "b", path[1].ID)
	assert.Equal(t, "c", path[2].ID)
}

func TestBuildIsDeterministic(t *testing.T) {
	nodes := []api.TopicNode{
		node("r", "Root", "", 0),
		node("x", "Same", "r", 5),
		node("y", "Same", "r", 5), // ties broken by id
		node("z", "Early", "r", 1),
	}
	first := Build(nodes)
	second := Build(nodes)

	assert.Equal(t, first.Render(), second.Render())

	kids := first.ChildrenOf("r")
	require.Len(t, kids, 3)
	assert.Equal(t, "z", kids[0].ID) // earliest creation first
	assert.Equal(t, "x", kids[1].ID)
	assert.Equal(t, "y", kids[2].ID)
}

func TestBuildForestMultipleRoots(t *testing.T) {
	nodes := []api.TopicNode{
		node("py", "Python", "", 0),
		node("go", "Go", "", 1),
		node("ch", "Channels", "go", 2),
	}
	tr := Build(nodes)

	roots := tr.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "py", roots[0].ID)
	assert.Equal(t, "go", roots[1].ID)
	assert.Empty(t, tr.Dangling())
}

func TestDanglingParentBecomesSyntheticRoot(t *testing.T) {
	// "orphan" references a parent outside the supplied (filtered) set.
	nodes := []api.TopicNode{
		node("a", "A", "", 0),
		node("orphan", "Orphan", "gone", 1),
		node("kid", "Kid", "orphan", 2),
	}
	tr := Build(nodes)

	roots := tr.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, []string{"orphan"}, tr.Dangling())

	// The orphan still works as a subtree root.
	kids := tr.ChildrenOf("orphan")
	require.Len(t, kids, 1)
	assert.Equal(t, "kid", kids[0].ID)

	// Ancestor walk stops at the missing parent instead of failing.
	path := tr.AncestorPath("kid")
	require.Len(t, path, 2)
	assert.Equal(t, "orphan", path[0].ID)
}

func TestAncestorPathUnknownID(t *testing.T) {
	tr := Build([]api.TopicNode{node("a", "A", "", 0)})
	assert.Nil(t, tr.AncestorPath("missing"))
}

func TestRender(t *testing.T) {
	nodes := []api.TopicNode{
		node("py", "Python", "", 0),
		node("as", "Asyncio", "py", 1),
		node("tg", "TaskGroups", "as", 2),
		node("ty", "Typing", "py", 3),
	}
	out := Build(nodes).Render()

	want := strings.Join([]string{
		"Python (py)",
		"├── Asyncio (as)",
		"│   └── TaskGroups (tg)",
		"└── Typing (ty)",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Build(nil).Render())
}
