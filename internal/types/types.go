package types

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/sage/internal/models"
)

// CatalogMatch is the best catalog hit for a fuzzy course name.
type CatalogMatch struct {
	Title    string
	Distance float32
}

// ContentFilter restricts a content query. Both fields are optional and
// combine as a conjunction.
type ContentFilter struct {
	CourseTitle string
	Lesson      *int
}

// VectorIndex is the two-namespace embedding index: one catalog record per
// course for fuzzy title resolution, fine-grained chunks for content search.
type VectorIndex interface {
	UpsertCatalogEntry(ctx context.Context, course models.Course) error
	UpsertContentChunks(ctx context.Context, chunks []models.Chunk) error
	QueryCatalog(ctx context.Context, text string) (*CatalogMatch, error)
	QueryContent(ctx context.Context, text string, filter ContentFilter, limit int) ([]models.SearchResult, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Tool is a capability the model may invoke by name during a query round.
type Tool interface {
	Name() string
	Schema() llms.Tool
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// SourceTracker is implemented by tools that record citations from their
// most recent invocation.
type SourceTracker interface {
	LastSources() []models.Citation
	ResetSources()
}
