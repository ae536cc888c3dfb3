package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agentic-research/gitlore/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createdNode records one CreateTopicNode call.
type createdNode struct {
	id          string
	name        string
	parentID    *string
	description string
	sourceLink  string
}

// fakeCreator assigns sequential ids and records every write attempt.
type fakeCreator struct {
	created []createdNode
	failOn  map[string]error // name → error to return instead of writing
}

func (f *fakeCreator) CreateTopicNode(_ context.Context, name string, parentID *string, description, sourceLink string) (string, error) {
	if err, ok := f.failOn[name]; ok {
		return "", err
	}
	id := fmt.Sprintf("node-%d", len(f.created)+1)
	f.created = append(f.created, createdNode{
		id:          id,
		name:        name,
		parentID:    parentID,
		description: description,
		sourceLink:  sourceLink,
	})
	return id, nil
}

func TestResolveExistingParentsOnly(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	batch := []api.CandidateTopic{
		{Path: "Go/Channels", Description: "d1", Parent: api.ExistingParent("p-1")},
		{Path: "Go/Goroutines", Description: "d2", Parent: api.ExistingParent("p-2")},
		{Path: "Go/Select", Description: "d3", Parent: api.ExistingParent("p-1")},
	}
	results := r.Resolve(context.Background(), batch)

	require.Len(t, results, len(batch))
	for i, res := range results {
		require.NoError(t, res.Err, "candidate %d", i)
		assert.NotEmpty(t, res.ID)
	}
	require.Len(t, fc.created, 3)
	assert.Equal(t, "p-1", *fc.created[0].parentID)
	assert.Equal(t, "p-2", *fc.created[1].parentID)
	assert.Equal(t, "p-1", *fc.created[2].parentID)
	// Name is the trailing path segment only.
	assert.Equal(t, "Channels", fc.created[0].name)
}

func TestResolveTempKeyChain(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	batch := []api.CandidateTopic{
		{Path: "Python", TempID: "t1", Parent: api.RootRef()},
		{Path: "Python/Asyncio", TempID: "t2", Parent: api.BatchParent("t1")},
		{Path: "Python/Asyncio/TaskGroups", TempID: "t3", Parent: api.BatchParent("t2")},
	}
	results := r.Resolve(context.Background(), batch)

	require.Len(t, results, 3)
	for _, res := range results {
		require.NoError(t, res.Err)
	}
	require.Len(t, fc.created, 3)
	assert.Nil(t, fc.created[0].parentID)
	assert.Equal(t, results[0].ID, *fc.created[1].parentID)
	assert.Equal(t, results[1].ID, *fc.created[2].parentID)
}

func TestResolveForwardReferenceFails(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	batch := []api.CandidateTopic{
		{Path: "A", TempID: "ta", Parent: api.RootRef()},
		// References t-later, which only appears after it in the batch.
		{Path: "B", Parent: api.BatchParent("t-later")},
		{Path: "C", TempID: "t-later", Parent: api.RootRef()},
	}
	results := r.Resolve(context.Background(), batch)

	require.NoError(t, results[0].Err)
	require.NoError(t, results[2].Err)

	var unresolved *UnresolvedParentError
	require.ErrorAs(t, results[1].Err, &unresolved)
	assert.Equal(t, 1, unresolved.Index)
	assert.Equal(t, "B", unresolved.Path)
	assert.Equal(t, "t-later", unresolved.TempKey)

	// The failed candidate was never written; the others were.
	require.Len(t, fc.created, 2)
	assert.Equal(t, "A", fc.created[0].name)
	assert.Equal(t, "C", fc.created[1].name)
}

func TestResolveUnknownTempKeyFails(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	results := r.Resolve(context.Background(), []api.CandidateTopic{
		{Path: "Orphan", Parent: api.BatchParent("nope")},
	})

	var unresolved *UnresolvedParentError
	require.ErrorAs(t, results[0].Err, &unresolved)
	assert.Empty(t, fc.created)
}

// A failure on candidate k must not roll back 0..k-1 and must not block
// k+1 onward. There is no atomic batch.
func TestResolveFailureIsolation(t *testing.T) {
	fc := &fakeCreator{failOn: map[string]error{"Broken": errors.New("disk full")}}
	r := New(fc)

	batch := []api.CandidateTopic{
		{Path: "First", TempID: "t1", Parent: api.RootRef()},
		{Path: "Broken", Parent: api.RootRef()},
		{Path: "Last", Parent: api.BatchParent("t1")},
	}
	results := r.Resolve(context.Background(), batch)

	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.ErrorContains(t, results[1].Err, "disk full")
	assert.ErrorContains(t, results[1].Err, "Broken")
	require.NoError(t, results[2].Err)
	require.Len(t, fc.created, 2)
}

// Resubmitting a previously successful candidate yields a second,
// distinct node. Dedup by name+parent is deliberately absent.
func TestResolveResubmissionDuplicates(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	cand := []api.CandidateTopic{{Path: "Rust/Borrowck", Parent: api.RootRef()}}

	first := r.Resolve(context.Background(), cand)
	second := r.Resolve(context.Background(), cand)

	require.NoError(t, first[0].Err)
	require.NoError(t, second[0].Err)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Len(t, fc.created, 2)
}

// Temp keys are batch-local: a key registered in one batch must not
// resolve in the next.
func TestResolveTempKeysDoNotLeakAcrossBatches(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	first := r.Resolve(context.Background(), []api.CandidateTopic{
		{Path: "Root", TempID: "t1", Parent: api.RootRef()},
	})
	require.NoError(t, first[0].Err)

	second := r.Resolve(context.Background(), []api.CandidateTopic{
		{Path: "Child", Parent: api.BatchParent("t1")},
	})
	var unresolved *UnresolvedParentError
	require.ErrorAs(t, second[0].Err, &unresolved)
}

func TestResolveEmptyBatch(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)
	assert.Empty(t, r.Resolve(context.Background(), nil))
	assert.Empty(t, fc.created)
}

func TestResolvePassesFieldsThrough(t *testing.T) {
	fc := &fakeCreator{}
	r := New(fc)

	results := r.Resolve(context.Background(), []api.CandidateTopic{{
		Path:        "Go/Concurrency/Channels",
		Description: "buffered vs unbuffered",
		SourceLink:  "https://github.com/octo/widgets/commit/abc123",
		Parent:      api.RootRef(),
	}})

	require.NoError(t, results[0].Err)
	require.Len(t, fc.created, 1)
	assert.Equal(t, "Channels", fc.created[0].name)
	assert.Equal(t, "buffered vs unbuffered", fc.created[0].description)
	assert.Equal(t, "https://github.com/octo/widgets/commit/abc123", fc.created[0].sourceLink)
}
