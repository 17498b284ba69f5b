package search_test

import (
	"context"

	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

// fakeIndex serves canned catalog matches and filters stored results in
// memory, standing in for the pgvector store.
type fakeIndex struct {
	// catalogMatches maps query text to the top-1 match returned.
	catalogMatches map[string]*types.CatalogMatch
	results        []models.SearchResult
	err            error
	contentQueries int
	catalogQueries int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{catalogMatches: make(map[string]*types.CatalogMatch)}
}

func (f *fakeIndex) UpsertCatalogEntry(context.Context, models.Course) error { return f.err }

func (f *fakeIndex) UpsertContentChunks(context.Context, []models.Chunk) error { return f.err }

func (f *fakeIndex) QueryCatalog(_ context.Context, text string) (*types.CatalogMatch, error) {
	f.catalogQueries++
	if f.err != nil {
		return nil, f.err
	}
	return f.catalogMatches[text], nil
}

func (f *fakeIndex) QueryContent(_ context.Context, _ string, filter types.ContentFilter, limit int) ([]models.SearchResult, error) {
	f.contentQueries++
	if f.err != nil {
		return nil, f.err
	}

	var out []models.SearchResult
	for _, r := range f.results {
		if filter.CourseTitle != "" && r.CourseTitle != filter.CourseTitle {
			continue
		}
		if filter.Lesson != nil && (r.Lesson == nil || *r.Lesson != *filter.Lesson) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) ListCourseTitles(context.Context) ([]string, error) { return nil, f.err }

func (f *fakeIndex) Clear(context.Context) error { return f.err }

func lesson(n int) *int { return &n }
