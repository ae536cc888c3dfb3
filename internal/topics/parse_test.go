package topics

import (
	"testing"
	"time"

	"github.com/agentic-research/gitlore/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopics(t *testing.T) {
	content := `{
		"topics": [
			{
				"path": "Go/Concurrency",
				"description": "goroutines and channels",
				"code_example": "go func() {}()",
				"use_cases": ["pipelines", "fan-out"],
				"temp_id": "t1",
				"parent_id": null,
				"parent_temp_id": null
			},
			{
				"path": "Go/Concurrency/Select",
				"description": "multiplexing channel ops",
				"code_example": "select {}",
				"use_cases": ["timeouts"],
				"temp_id": "t2",
				"parent_id": null,
				"parent_temp_id": "t1"
			},
			{
				"path": "Go/Errors",
				"description": "wrapping",
				"code_example": "fmt.Errorf(\"x: %w\", err)",
				"use_cases": [],
				"temp_id": "t3",
				"parent_id": "existing-42",
				"parent_temp_id": null
			}
		]
	}`

	cands, err := parseTopics(content)
	require.NoError(t, err)
	require.Len(t, cands, 3)

	assert.Equal(t, "Go/Concurrency", cands[0].Path)
	assert.Equal(t, "Concurrency", cands[0].Name())
	assert.Equal(t, []string{"pipelines", "fan-out"}, cands[0].UseCases)
	assert.Equal(t, api.ParentRoot, cands[0].Parent.Kind())
	assert.Equal(t, "t1", cands[0].TempID)

	assert.Equal(t, api.ParentBatch, cands[1].Parent.Kind())
	assert.Equal(t, "t1", cands[1].Parent.TempKey())

	assert.Equal(t, api.ParentExisting, cands[2].Parent.Kind())
	assert.Equal(t, "existing-42", cands[2].Parent.NodeID())
}

func TestParseTopicsRejectsGarbage(t *testing.T) {
	_, err := parseTopics("not json at all {")
	assert.Error(t, err)

	_, err = parseTopics(`{"topics": ["just a string"]}`)
	assert.ErrorContains(t, err, "expected object")

	_, err = parseTopics(`{"topics": [{"path": "", "temp_id": "t1"}]}`)
	assert.ErrorContains(t, err, "empty path")
}

func TestParseTopicsEmpty(t *testing.T) {
	cands, err := parseTopics(`{"topics": []}`)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestParseTopicsToleratesWrongFieldTypes(t *testing.T) {
	cands, err := parseTopics(`{"topics": [{
		"path": "X",
		"description": 7,
		"code_example": null,
		"use_cases": "oops",
		"temp_id": null,
		"parent_id": null,
		"parent_temp_id": null
	}]}`)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Empty(t, cands[0].Description)
	assert.Nil(t, cands[0].UseCases)
	assert.Equal(t, api.ParentRoot, cands[0].Parent.Kind())
}

func TestMatchParents(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	known := []api.TopicNode{
		{ID: "id-py", Name: "Python", CreatedAt: created},
		{ID: "id-async", Name: "Asyncio", CreatedAt: created.Add(time.Second)},
		// Later duplicate name must not displace the earlier node.
		{ID: "id-async-dup", Name: "Asyncio", CreatedAt: created.Add(time.Minute)},
	}

	cands := []api.CandidateTopic{
		// Second-to-last segment names a known node.
		{Path: "Python/Asyncio/TaskGroups", Parent: api.BatchParent("t9")},
		// No known node named "Unknown": batch reference survives.
		{Path: "Python/Unknown/Depths", Parent: api.BatchParent("t1")},
		// Single segment: nothing to match.
		{Path: "Rust", Parent: api.RootRef()},
	}
	MatchParents(cands, known)

	assert.Equal(t, api.ParentExisting, cands[0].Parent.Kind())
	assert.Equal(t, "id-async", cands[0].Parent.NodeID())

	assert.Equal(t, api.ParentBatch, cands[1].Parent.Kind())
	assert.Equal(t, api.ParentRoot, cands[2].Parent.Kind())
}

func TestMatchParentsNoKnownNodes(t *testing.T) {
	cands := []api.CandidateTopic{{Path: "A/B", Parent: api.BatchParent("t1")}}
	MatchParents(cands, nil)
	assert.Equal(t, api.ParentBatch, cands[0].Parent.Kind())
}
