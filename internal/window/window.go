// Package window computes the "new work" subset of a freshly fetched
// commit page relative to a repository's sync cursor.
package window

import (
	"fmt"

	"github.com/agentic-research/gitlore/api"
)

// Window is the result of resolving a commit page against a cursor.
type Window struct {
	// Commits newer than the cursor, newest-first. On first sync this
	// is the entire fetched page.
	Commits []api.Commit
	// IsFirstSync is true when no cursor existed for the repository.
	IsFirstSync bool
}

// CursorNotFoundError reports a cursor whose commit does not appear
// anywhere in the fetched page: the repository advanced by more than
// one page since the last sync, or history was rewritten. We refuse to
// guess at the missing range; the caller decides whether to reset the
// cursor or fetch a larger page.
type CursorNotFoundError struct {
	Repo   string
	Cursor string
}

func (e *CursorNotFoundError) Error() string {
	return fmt.Sprintf("cursor %s for %s not found in fetched commits", e.Cursor, e.Repo)
}

// Resolve maps (cursor, newest-first commit page) to the window of
// commits not yet seen. It is a pure function: identical inputs always
// produce identical windows, regardless of call count.
//
//   - cursor == nil (never synced): the whole page, IsFirstSync true.
//   - cursor found at index i: commits strictly newer than it
//     (page[:i]), IsFirstSync false.
//   - cursor present but absent from the page: *CursorNotFoundError.
func Resolve(repo string, cursor *api.SyncState, commits []api.Commit) (Window, error) {
	if cursor == nil {
		return Window{Commits: clip(commits), IsFirstSync: true}, nil
	}
	for i, c := range commits {
		if c.ID == cursor.LastCommitHash {
			return Window{Commits: clip(commits[:i])}, nil
		}
	}
	return Window{}, &CursorNotFoundError{Repo: repo, Cursor: cursor.LastCommitHash}
}

// clip copies and re-indexes so the window owns its backing array and
// Position always matches the window's own newest-first order.
func clip(commits []api.Commit) []api.Commit {
	out := make([]api.Commit, len(commits))
	for i, c := range commits {
		c.Position = i
		out[i] = c
	}
	return out
}
