package rag

import (
	"context"
	"fmt"

	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
	"github.com/xhad/sage/pkg/config"
	"github.com/xhad/sage/pkg/ingest"
	"github.com/xhad/sage/pkg/llm"
	"github.com/xhad/sage/pkg/search"
	"github.com/xhad/sage/pkg/store"
)

// System wires the whole pipeline together: embedding index, resolver,
// searcher, tool registry, session store and orchestrator. It is the one
// type collaborators (CLI, server) talk to.
type System struct {
	index    types.VectorIndex
	store    *store.VectorStore
	ingester *ingest.Ingester
	sessions *SessionStore
	orch     *Orchestrator
}

// NewSystem builds a System from configuration, connecting to Ollama and
// Postgres.
func NewSystem(cfg *config.Config) (*System, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbeddingModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString:   cfg.Database.URL,
		CatalogTable: cfg.Database.CatalogTable,
		ContentTable: cfg.Database.ContentTable,
		VectorDim:    cfg.Database.VectorDim,
		SearchLimit:  cfg.Database.SearchLimit,
		Embedder:     embedder,
	})
	if err != nil {
		return nil, err
	}

	sys, err := AssembleSystem(cfg, vectorStore, chatEngine)
	if err != nil {
		vectorStore.Close()
		return nil, err
	}
	sys.store = vectorStore
	return sys, nil
}

// AssembleSystem wires a System around an existing index and generator.
// Split out from NewSystem so tests can substitute fakes for both.
func AssembleSystem(cfg *config.Config, index types.VectorIndex, generator Generator) (*System, error) {
	resolver := search.NewResolver(index, cfg.Database.SearchDistance)
	searcher := search.NewSearcher(search.SearcherConfig{Limit: cfg.Database.SearchLimit}, index, resolver)

	registry := search.NewRegistry()
	if err := registry.Register(search.NewTool(searcher)); err != nil {
		return nil, err
	}

	sessions := NewSessionStore(cfg.Session.MaxHistory)
	orch := NewOrchestrator(OrchestratorConfig{}, generator, registry, sessions)

	ingester := ingest.NewWithConfig(ingest.IngesterConfig{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		MinChunkLength: cfg.Ingest.MinChunkLength,
		RateLimit:      cfg.Ingest.RateLimit,
		Extensions:     cfg.Ingest.Extensions,
	}, index)

	return &System{
		index:    index,
		ingester: ingester,
		sessions: sessions,
		orch:     orch,
	}, nil
}

// Query answers one user question within a session.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []models.Citation, error) {
	if query == "" {
		return "", nil, fmt.Errorf("query must not be empty")
	}
	return s.orch.Answer(ctx, query, sessionID)
}

// NewSessionID mints a session identifier for callers that do not manage
// their own.
func (s *System) NewSessionID() string {
	return s.sessions.NewSessionID()
}

// ClearSession forgets a session's conversation history.
func (s *System) ClearSession(sessionID string) {
	s.sessions.Clear(sessionID)
}

// AddCourseFolder ingests a folder of course documents, skipping courses
// already in the catalog unless clearExisting forces a rebuild.
func (s *System) AddCourseFolder(ctx context.Context, path string, clearExisting bool) (int, int, error) {
	return s.ingester.AddCourseFolder(ctx, path, clearExisting)
}

// OnIngestProgress registers a callback invoked once per ingested file,
// used by the CLI to drive its progress bar.
func (s *System) OnIngestProgress(fn func(file string)) {
	s.ingester.SetOnProgress(fn)
}

// GetCourseStats returns the catalog size and every course title.
func (s *System) GetCourseStats(ctx context.Context) (int, []string, error) {
	titles, err := s.index.ListCourseTitles(ctx)
	if err != nil {
		return 0, nil, err
	}
	return len(titles), titles, nil
}

// Close releases the database pool, if this System owns one.
func (s *System) Close() {
	if s.store != nil {
		s.store.Close()
	}
}
