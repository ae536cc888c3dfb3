// Package api defines the public data model shared by the gitlore
// packages: commits as fetched from the source host, sync cursors,
// persisted knowledge-tree nodes, and AI-proposed candidate topics.
package api

import "time"

// Commit is one entry from the source host's commit listing.
// Immutable; Position is its index in the newest-first sequence
// returned for a single query.
type Commit struct {
	ID          string `json:"commit_id"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// SyncState is the per-repository cursor: the last commit recorded as
// synced. One row per repository or none; absence means "never synced"
// and is a distinguishable state, not a zero value.
type SyncState struct {
	RepoName       string    `json:"repo_name"`
	LastCommitHash string    `json:"last_commit_hash"`
	LastSyncedAt   time.Time `json:"last_synced_at"`
}

// TopicNode is a persisted node of the knowledge tree. The set of all
// nodes forms a forest: ParentID is either empty (root) or references a
// node that existed in storage at the time it was set.
type TopicNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ParentID    string    `json:"parent_id,omitempty"`
	Description string    `json:"description"`
	SourceLink  string    `json:"source_link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParentKind discriminates the three ways a candidate can name its parent.
type ParentKind int

const (
	// ParentRoot means no parent; the candidate becomes a forest root.
	ParentRoot ParentKind = iota
	// ParentExisting points at an already-persisted node id.
	ParentExisting
	// ParentBatch points at another candidate in the same batch,
	// named by its batch-local temp key.
	ParentBatch
)

// ParentRef is a tagged variant for a candidate's parent reference.
// Exactly one interpretation applies per value; the illegal
// "both real id and temp key" state is unrepresentable.
type ParentRef struct {
	kind    ParentKind
	id      string
	tempKey string
}

// RootRef returns a ParentRef meaning "no parent".
func RootRef() ParentRef { return ParentRef{kind: ParentRoot} }

// ExistingParent returns a ParentRef naming a persisted node id.
func ExistingParent(id string) ParentRef {
	return ParentRef{kind: ParentExisting, id: id}
}

// BatchParent returns a ParentRef naming an earlier candidate in the
// same batch by its temp key.
func BatchParent(tempKey string) ParentRef {
	return ParentRef{kind: ParentBatch, tempKey: tempKey}
}

// Kind reports which variant this reference is.
func (r ParentRef) Kind() ParentKind { return r.kind }

// NodeID returns the persisted parent id. Valid only for ParentExisting.
func (r ParentRef) NodeID() string { return r.id }

// TempKey returns the batch-local key. Valid only for ParentBatch.
func (r ParentRef) TempKey() string { return r.tempKey }

// CandidateTopic is an AI-proposed, not-yet-persisted tree node.
// Path encodes an apparent hierarchy via "/" separators, but only
// Parent determines tree structure; the trailing path segment is the
// display name and nothing more. TempID is meaningful only within the
// batch currently being resolved; later candidates may reference this
// one through it.
type CandidateTopic struct {
	Path        string    `json:"path"`
	Description string    `json:"description"`
	CodeExample string    `json:"code_example"`
	UseCases    []string  `json:"use_cases"`
	SourceLink  string    `json:"source_link,omitempty"`
	TempID      string    `json:"temp_id,omitempty"`
	Parent      ParentRef `json:"-"`
}

// Name returns the candidate's display name: the last path segment.
func (c CandidateTopic) Name() string {
	for i := len(c.Path) - 1; i >= 0; i-- {
		if c.Path[i] == '/' {
			return c.Path[i+1:]
		}
	}
	return c.Path
}
