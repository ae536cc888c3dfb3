// Package server provides the HTTP API for gitlore.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agentic-research/gitlore/api"
	"github.com/agentic-research/gitlore/internal/config"
	"github.com/agentic-research/gitlore/internal/resolve"
	"github.com/agentic-research/gitlore/internal/store"
	"github.com/agentic-research/gitlore/internal/topics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// CommitSource is the commit-fetching collaborator. Implemented by gh.Source.
type CommitSource interface {
	FetchCommits(ctx context.Context, repo, branch string, max int) ([]api.Commit, error)
	CommitDiffs(ctx context.Context, repo string, shas []string, includePatch bool) (string, error)
}

// TopicGenerator is the topic-proposing collaborator. Implemented by
// topics.Generator.
type TopicGenerator interface {
	Generate(ctx context.Context, req topics.GenerateRequest) ([]api.CandidateTopic, error)
}

// Server is the HTTP server for the gitlore API.
type Server struct {
	store     *store.Store
	source    CommitSource
	generator TopicGenerator
	resolver  *resolve.Resolver
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	st *store.Store,
	source CommitSource,
	generator TopicGenerator,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:     st,
		source:    source,
		generator: generator,
		resolver:  resolve.New(st),
		config:    cfg,
		logger:    logger,
	}
}

// Routes builds the chi router. Split from Start so tests can serve
// the handlers through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/knowledge_base/{root}", s.handleKnowledgeBase)
	r.Post("/api/analyze_commits", s.handleAnalyzeCommits)
	r.Post("/api/get_commit_diffs", s.handleCommitDiffs)
	r.Post("/api/generate_topics", s.handleGenerateTopics)
	r.Post("/api/save_learning", s.handleSaveLearning)
	r.Post("/api/save_topics_batch", s.handleSaveTopicsBatch)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
