// Package store persists the knowledge tree and the per-repository
// sync cursors in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agentic-research/gitlore/api"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS topic_nodes (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source_link TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_topic_parent_name ON topic_nodes(parent_id, name);

CREATE TABLE IF NOT EXISTS sync_state (
	repo_name TEXT PRIMARY KEY,
	last_commit_hash TEXT NOT NULL,
	last_synced_at INTEGER NOT NULL
);
`

// Store wraps the SQLite database holding topic nodes and sync cursors.
type Store struct {
	db *sql.DB

	// now is swappable so tests can pin creation timestamps.
	now func() time.Time
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// WAL lets concurrent request handlers read while a batch writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetSyncState returns the cursor for repo, or (nil, nil) when the
// repository has never been synced. Absence is a signal, not an error.
func (s *Store) GetSyncState(ctx context.Context, repo string) (*api.SyncState, error) {
	var (
		hash     string
		syncedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT last_commit_hash, last_synced_at FROM sync_state WHERE repo_name = ?", repo,
	).Scan(&hash, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state for %s: %w", repo, err)
	}
	return &api.SyncState{
		RepoName:       repo,
		LastCommitHash: hash,
		LastSyncedAt:   time.Unix(0, syncedAt),
	}, nil
}

// UpsertSyncState unconditionally records commitHash as the last seen
// commit for repo. Idempotent; it never validates ancestry. Enforcing
// "only move forward" belongs to the caller.
func (s *Store) UpsertSyncState(ctx context.Context, repo, commitHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (repo_name, last_commit_hash, last_synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(repo_name) DO UPDATE SET
			last_commit_hash = excluded.last_commit_hash,
			last_synced_at = excluded.last_synced_at`,
		repo, commitHash, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert sync state for %s: %w", repo, err)
	}
	return nil
}

// CreateTopicNode persists one node and returns its id. parentID is nil
// for roots and is trusted to reference an existing node otherwise.
// Duplicate name+parent pairs are permitted.
func (s *Store) CreateTopicNode(ctx context.Context, name string, parentID *string, description, sourceLink string) (string, error) {
	id := uuid.NewString()
	var link any
	if sourceLink != "" {
		link = sourceLink
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topic_nodes (id, parent_id, name, description, source_link, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, parentID, name, description, link, s.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("create topic node %q: %w", name, err)
	}
	return id, nil
}

// ListTopicNodes returns every persisted node, oldest first.
func (s *Store) ListTopicNodes(ctx context.Context) ([]api.TopicNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, name, description, source_link, created_at
		FROM topic_nodes ORDER BY created_at, name, id`)
	if err != nil {
		return nil, fmt.Errorf("list topic nodes: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore
	return scanNodes(rows)
}

// Subtree returns the nodes rooted at the earliest-created node named
// rootName, via a recursive walk of parent pointers. Returns (nil, nil)
// when no node carries that name.
func (s *Store) Subtree(ctx context.Context, rootName string) ([]api.TopicNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE subtree(id, parent_id, name, description, source_link, created_at) AS (
			SELECT id, parent_id, name, description, source_link, created_at
			FROM topic_nodes
			WHERE id = (
				SELECT id FROM topic_nodes WHERE name = ?
				ORDER BY created_at, id LIMIT 1
			)
			UNION ALL
			SELECT n.id, n.parent_id, n.name, n.description, n.source_link, n.created_at
			FROM topic_nodes n
			JOIN subtree s ON n.parent_id = s.id
		)
		SELECT id, parent_id, name, description, source_link, created_at FROM subtree`,
		rootName)
	if err != nil {
		return nil, fmt.Errorf("subtree %q: %w", rootName, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore
	return scanNodes(rows)
}

// GetNodeByName returns the earliest-created node with the given name,
// or (nil, nil) when none exists.
func (s *Store) GetNodeByName(ctx context.Context, name string) (*api.TopicNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, name, description, source_link, created_at
		FROM topic_nodes WHERE name = ? ORDER BY created_at, id LIMIT 1`, name)
	if err != nil {
		return nil, fmt.Errorf("get node by name %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore
	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

func scanNodes(rows *sql.Rows) ([]api.TopicNode, error) {
	var out []api.TopicNode
	for rows.Next() {
		var (
			n         api.TopicNode
			parentID  sql.NullString
			link      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &parentID, &n.Name, &n.Description, &link, &createdAt); err != nil {
			return nil, fmt.Errorf("scan topic node: %w", err)
		}
		n.ParentID = parentID.String
		n.SourceLink = link.String
		n.CreatedAt = time.Unix(0, createdAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic nodes: %w", err)
	}
	return out, nil
}
