// Package resolve commits a batch of AI-proposed candidate topics into
// persisted knowledge-tree nodes in a single topologically ordered pass.
//
// A candidate's parent may be an already-persisted node, another member
// of the same unpersisted batch (named by a batch-local temp key), or
// nothing (a new root). Input order IS dependency order: a candidate
// referenced by temp key must precede its referrer. There is no second
// resolution round-trip; each candidate is resolved and written as it
// is visited.
package resolve

import (
	"context"
	"fmt"

	"github.com/agentic-research/gitlore/api"
)

// NodeCreator is the persistence operation the resolver needs. parentID
// is nil for roots. Implemented by store.Store.
type NodeCreator interface {
	CreateTopicNode(ctx context.Context, name string, parentID *string, description, sourceLink string) (string, error)
}

// UnresolvedParentError reports a candidate whose batch parent
// reference names a temp key that no earlier candidate registered,
// either a forward reference or a key that never appears. The candidate
// is not persisted; siblings are unaffected.
type UnresolvedParentError struct {
	Index   int
	Path    string
	TempKey string
}

func (e *UnresolvedParentError) Error() string {
	return fmt.Sprintf("candidate %d (%s): unresolved parent temp key %q", e.Index, e.Path, e.TempKey)
}

// Result is the outcome for one candidate, aligned to input order.
// Exactly one of ID and Err is set.
type Result struct {
	ID  string
	Err error
}

// Resolver persists candidate batches through a NodeCreator.
type Resolver struct {
	nodes NodeCreator
}

// New returns a Resolver writing through the given creator.
func New(nodes NodeCreator) *Resolver {
	return &Resolver{nodes: nodes}
}

// Resolve processes the batch in order and returns one Result per
// candidate, in the same order.
//
// Guarantees: exactly one persistence write attempt per successfully
// resolved candidate, never more. A failure on candidate k does not
// roll back candidates 0..k-1; they stay persisted. Re-submitting an
// already-persisted candidate creates a duplicate node; nodes are not
// deduplicated by name+parent.
func (r *Resolver) Resolve(ctx context.Context, batch []api.CandidateTopic) []Result {
	tempIDs := make(map[string]string, len(batch))
	results := make([]Result, len(batch))

	for i, cand := range batch {
		var parentID *string
		switch cand.Parent.Kind() {
		case api.ParentExisting:
			id := cand.Parent.NodeID()
			parentID = &id
		case api.ParentBatch:
			id, ok := tempIDs[cand.Parent.TempKey()]
			if !ok {
				results[i] = Result{Err: &UnresolvedParentError{
					Index:   i,
					Path:    cand.Path,
					TempKey: cand.Parent.TempKey(),
				}}
				continue
			}
			parentID = &id
		case api.ParentRoot:
			// parent stays nil
		}

		id, err := r.nodes.CreateTopicNode(ctx, cand.Name(), parentID, cand.Description, cand.SourceLink)
		if err != nil {
			results[i] = Result{Err: fmt.Errorf("candidate %d (%s): %w", i, cand.Path, err)}
			continue
		}
		results[i] = Result{ID: id}

		if cand.TempID != "" {
			tempIDs[cand.TempID] = id
		}
	}

	return results
}
