package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agentic-research/gitlore/api"
	"github.com/agentic-research/gitlore/internal/gh"
	"github.com/agentic-research/gitlore/internal/resolve"
	"github.com/agentic-research/gitlore/internal/topics"
	"github.com/agentic-research/gitlore/internal/tree"
	"github.com/agentic-research/gitlore/internal/window"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	root := chi.URLParam(r, "root")
	nodes, err := s.store.Subtree(r.Context(), root)
	if err != nil {
		s.logger.Error("subtree query failed", zap.String("root", root), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	t := tree.Build(nodes)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"tree_string": t.Render(),
		"raw_data":    nodes,
	})
}

type analyzeCommitsRequest struct {
	RepoID         string `json:"repo_id"`
	Branch         string `json:"branch"`
	MaxCommits     int    `json:"max_commits"`
	UpdateLastSync bool   `json:"update_last_sync"`
}

func (s *Server) handleAnalyzeCommits(w http.ResponseWriter, r *http.Request) {
	var req analyzeCommitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoID == "" {
		s.respondError(w, http.StatusBadRequest, "repo_id is required")
		return
	}
	if req.Branch == "" {
		req.Branch = s.config.Sync.Branch
	}
	if req.MaxCommits <= 0 {
		req.MaxCommits = s.config.Sync.MaxCommits
	}
	ctx := r.Context()

	cursor, err := s.store.GetSyncState(ctx, req.RepoID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	commits, err := s.source.FetchCommits(ctx, req.RepoID, req.Branch, req.MaxCommits)
	if err != nil {
		s.logger.Error("fetch commits failed", zap.String("repo", req.RepoID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	win, err := window.Resolve(req.RepoID, cursor, commits)
	if err != nil {
		var notFound *window.CursorNotFoundError
		if errors.As(err, &notFound) {
			// The stored cursor fell off the fetched page. Refuse to
			// guess; the client chooses how to recover.
			s.respondError(w, http.StatusConflict, notFound.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.UpdateLastSync && len(win.Commits) > 0 {
		if err := s.store.UpsertSyncState(ctx, req.RepoID, win.Commits[0].ID); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	resp := map[string]any{
		"commits":       win.Commits,
		"is_first_sync": win.IsFirstSync,
	}
	if cursor != nil {
		resp["last_synced_commit"] = cursor.LastCommitHash
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type commitDiffsRequest struct {
	RepoID       string   `json:"repo_id"`
	CommitIDs    []string `json:"commit_ids"`
	IncludePatch *bool    `json:"include_patch"`
}

func (s *Server) handleCommitDiffs(w http.ResponseWriter, r *http.Request) {
	var req commitDiffsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoID == "" || len(req.CommitIDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "repo_id and commit_ids are required")
		return
	}
	includePatch := req.IncludePatch == nil || *req.IncludePatch

	diffs, err := s.source.CommitDiffs(r.Context(), req.RepoID, req.CommitIDs, includePatch)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"diffs": diffs})
}

type generateTopicsRequest struct {
	RepoID           string   `json:"repo_id"`
	CommitIDs        []string `json:"commit_ids"`
	RootLanguage     string   `json:"root_language"`
	UserInstructions string   `json:"user_instructions"`
	FocusArea        string   `json:"focus_area"`
}

func (s *Server) handleGenerateTopics(w http.ResponseWriter, r *http.Request) {
	var req generateTopicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoID == "" || len(req.CommitIDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "repo_id and commit_ids are required")
		return
	}
	if req.RootLanguage == "" {
		req.RootLanguage = s.config.OpenAI.RootLanguage
	}
	ctx := r.Context()

	known, err := s.store.Subtree(ctx, req.RootLanguage)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	treeString := tree.Build(known).Render()

	diffs, err := s.source.CommitDiffs(ctx, req.RepoID, req.CommitIDs, true)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	cands, err := s.generator.Generate(ctx, topics.GenerateRequest{
		Repo:          req.RepoID,
		Diffs:         diffs,
		RootLanguage:  req.RootLanguage,
		Instructions:  req.UserInstructions,
		FocusArea:     req.FocusArea,
		KnowledgeTree: treeString,
		KnownNodes:    known,
	})
	if err != nil {
		s.logger.Error("topic generation failed", zap.String("repo", req.RepoID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Tag each candidate with the commit-batch link for save-time use.
	link := gh.CommitLink(req.RepoID, req.CommitIDs[0])
	wire := make([]candidateJSON, len(cands))
	for i, c := range cands {
		if c.SourceLink == "" {
			c.SourceLink = link
		}
		wire[i] = toWire(c)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"topics":              wire,
		"knowledge_base_tree": treeString,
	})
}

// candidateJSON is the wire form of a CandidateTopic: the parent
// variant flattens to the nullable parent_id/parent_temp_id pair the
// clients (and the original API) speak.
type candidateJSON struct {
	Path         string   `json:"path"`
	Description  string   `json:"description"`
	CodeExample  string   `json:"code_example,omitempty"`
	UseCases     []string `json:"use_cases,omitempty"`
	SourceLink   string   `json:"source_link,omitempty"`
	TempID       string   `json:"temp_id,omitempty"`
	ParentID     *string  `json:"parent_id"`
	ParentTempID *string  `json:"parent_temp_id"`
}

func toWire(c api.CandidateTopic) candidateJSON {
	out := candidateJSON{
		Path:        c.Path,
		Description: c.Description,
		CodeExample: c.CodeExample,
		UseCases:    c.UseCases,
		SourceLink:  c.SourceLink,
		TempID:      c.TempID,
	}
	switch c.Parent.Kind() {
	case api.ParentExisting:
		id := c.Parent.NodeID()
		out.ParentID = &id
	case api.ParentBatch:
		key := c.Parent.TempKey()
		out.ParentTempID = &key
	}
	return out
}

// fromWire rebuilds the tagged parent variant. Both parent fields set
// is a client error.
func fromWire(c candidateJSON) (api.CandidateTopic, error) {
	cand := api.CandidateTopic{
		Path:        c.Path,
		Description: c.Description,
		CodeExample: c.CodeExample,
		UseCases:    c.UseCases,
		SourceLink:  c.SourceLink,
		TempID:      c.TempID,
	}
	switch {
	case c.ParentID != nil && *c.ParentID != "" && c.ParentTempID != nil && *c.ParentTempID != "":
		return cand, errors.New("parent_id and parent_temp_id are mutually exclusive")
	case c.ParentID != nil && *c.ParentID != "":
		cand.Parent = api.ExistingParent(*c.ParentID)
	case c.ParentTempID != nil && *c.ParentTempID != "":
		cand.Parent = api.BatchParent(*c.ParentTempID)
	default:
		cand.Parent = api.RootRef()
	}
	return cand, nil
}

// batchItemResult is one per-candidate outcome, aligned to input order.
// Failed items carry index and path so the client can retry just them.
type batchItemResult struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSaveTopicsBatch(w http.ResponseWriter, r *http.Request) {
	var wire []candidateJSON
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch := make([]api.CandidateTopic, len(wire))
	for i, c := range wire {
		cand, err := fromWire(c)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		batch[i] = cand
	}

	results := s.resolver.Resolve(r.Context(), batch)

	out := make([]batchItemResult, len(results))
	failed := 0
	for i, res := range results {
		out[i] = batchItemResult{Index: i, Path: batch[i].Path, ID: res.ID}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("batch partially failed",
			zap.Int("failed", failed), zap.Int("total", len(results)))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleSaveLearning(w http.ResponseWriter, r *http.Request) {
	var wire candidateJSON
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cand, err := fromWire(wire)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := s.resolver.Resolve(r.Context(), []api.CandidateTopic{cand})
	res := results[0]
	if res.Err != nil {
		// A lone candidate can never satisfy a batch-local reference.
		var unresolved *resolve.UnresolvedParentError
		if errors.As(res.Err, &unresolved) {
			s.respondError(w, http.StatusUnprocessableEntity, res.Err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, res.Err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": res.ID})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"detail": msg})
}
