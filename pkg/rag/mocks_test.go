package rag_test

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

// fakeGenerator replays scripted responses and records every call, so the
// loop bound is directly observable.
type fakeGenerator struct {
	responses []*llms.ContentResponse
	err       error

	calls        int
	lastMessages []llms.MessageContent
}

func (g *fakeGenerator) Generate(_ context.Context, messages []llms.MessageContent, _ []llms.Tool) (*llms.ContentResponse, error) {
	g.calls++
	g.lastMessages = messages
	if g.err != nil {
		return nil, g.err
	}

	i := g.calls - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:           id,
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
			}},
		}},
	}
}

// fakeIndex filters canned results in memory, standing in for the pgvector
// store.
type fakeIndex struct {
	catalogMatches map[string]*types.CatalogMatch
	results        []models.SearchResult
	titles         []string
	contentQueries int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{catalogMatches: make(map[string]*types.CatalogMatch)}
}

func (f *fakeIndex) UpsertCatalogEntry(context.Context, models.Course) error   { return nil }
func (f *fakeIndex) UpsertContentChunks(context.Context, []models.Chunk) error { return nil }

func (f *fakeIndex) QueryCatalog(_ context.Context, text string) (*types.CatalogMatch, error) {
	return f.catalogMatches[text], nil
}

func (f *fakeIndex) QueryContent(_ context.Context, _ string, filter types.ContentFilter, limit int) ([]models.SearchResult, error) {
	f.contentQueries++

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

func (f *fakeIndex) ListCourseTitles(context.Context) ([]string, error) { return f.titles, nil }

func (f *fakeIndex) Clear(context.Context) error { return nil }

func lesson(n int) *int { return &n }
