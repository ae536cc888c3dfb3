// Package gh fetches commit listings and LLM-readable diffs from the
// GitHub REST API.
package gh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentic-research/gitlore/api"
	"github.com/google/go-github/v29/github"
	"golang.org/x/oauth2"
)

const maxPerPage = 100

// Source is the commit source backed by the GitHub v3 API.
type Source struct {
	client *github.Client
}

// New returns a Source. With an empty token it operates
// unauthenticated, subject to GitHub's anonymous rate limit.
func New(ctx context.Context, token string) *Source {
	if token == "" {
		return &Source{client: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Source{client: github.NewClient(oauth2.NewClient(ctx, ts))}
}

// NewWithClient wraps an existing client. Used by tests to point at a
// fake API server.
func NewWithClient(client *github.Client) *Source {
	return &Source{client: client}
}

// splitRepo parses "owner/name".
func splitRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", repo)
	}
	return parts[0], parts[1], nil
}

// FetchCommits returns up to max commits on branch, newest-first.
// Description is the first line of the commit message; Position is the
// commit's index in the returned sequence.
func (s *Source) FetchCommits(ctx context.Context, repo, branch string, max int) ([]api.Commit, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		return nil, nil
	}

	perPage := max
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var out []api.Commit
	for len(out) < max {
		page, resp, err := s.client.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list commits for %s@%s: %w", repo, branch, err)
		}
		for _, rc := range page {
			out = append(out, api.Commit{
				ID:          rc.GetSHA(),
				Description: firstLine(rc.GetCommit().GetMessage()),
				Position:    len(out),
			})
			if len(out) >= max {
				break
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// CommitDiff renders one commit as LLM-readable text: header, stats,
// then per-file status and (optionally) the unified diff patch.
func (s *Source) CommitDiff(ctx context.Context, repo, sha string, includePatch bool) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}

	rc, _, err := s.client.Repositories.GetCommit(ctx, owner, name, sha)
	if err != nil {
		return "", fmt.Errorf("get commit %s in %s: %w", sha, repo, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[Commit ID]\n%s\n\n", rc.GetSHA())
	fmt.Fprintf(&sb, "[Description]\n%s\n\n", rc.GetCommit().GetMessage())
	author := rc.GetCommit().GetAuthor()
	fmt.Fprintf(&sb, "[Author]\n%s <%s>\n\n", author.GetName(), author.GetEmail())
	fmt.Fprintf(&sb, "[Date]\n%s\n\n", author.GetDate().Format(time.RFC3339))
	fmt.Fprintf(&sb, "[Stats]\nFiles changed: %d\n", len(rc.Files))
	if stats := rc.GetStats(); stats != nil {
		fmt.Fprintf(&sb, "Additions: %d\nDeletions: %d\n", stats.GetAdditions(), stats.GetDeletions())
	}
	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")

	for _, f := range rc.Files {
		fmt.Fprintf(&sb, "[File]\n%s\n\n", f.GetFilename())
		fmt.Fprintf(&sb, "[Status]\n%s\n\n", f.GetStatus())
		fmt.Fprintf(&sb, "[Changes]\n+%d -%d\n\n", f.GetAdditions(), f.GetDeletions())
		if includePatch && f.GetPatch() != "" {
			fmt.Fprintf(&sb, "[Diff]\n%s\n\n", f.GetPatch())
		}
		sb.WriteString(strings.Repeat("-", 80) + "\n\n")
	}

	return sb.String(), nil
}

// CommitDiffs concatenates diffs for several commits. A failure on one
// commit is embedded in the output instead of aborting the rest, so a
// single garbage sha cannot sink a whole generation request.
func (s *Source) CommitDiffs(ctx context.Context, repo string, shas []string, includePatch bool) (string, error) {
	var sb strings.Builder
	for i, sha := range shas {
		fmt.Fprintf(&sb, "\n%s\nCOMMIT %d of %d\n%s\n\n",
			strings.Repeat("=", 80), i+1, len(shas), strings.Repeat("=", 80))
		diff, err := s.CommitDiff(ctx, repo, sha, includePatch)
		if err != nil {
			fmt.Fprintf(&sb, "Error getting diff for %s: %v\n", sha, err)
			continue
		}
		sb.WriteString(diff)
	}
	return sb.String(), nil
}

// CommitLink returns the web URL for a commit, used as a node's source link.
func CommitLink(repo, sha string) string {
	return fmt.Sprintf("https://github.com/%s/commit/%s", repo, sha)
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
