package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

// Result is the outcome of one content search. Exactly one of Results and
// Message is populated: a message stands in for "nothing found" and
// "course name did not resolve" so the model always gets readable text,
// never a silent empty list.
type Result struct {
	Results []models.SearchResult
	Message string
}

type SearcherConfig struct {
	// Limit caps results per query (index default when zero).
	Limit int
}

// Searcher performs filtered semantic search over the content namespace,
// resolving fuzzy course names through the catalog first.
type Searcher struct {
	config   SearcherConfig
	index    types.VectorIndex
	resolver *Resolver
}

func NewSearcher(config SearcherConfig, index types.VectorIndex, resolver *Resolver) *Searcher {
	return &Searcher{
		config:   config,
		index:    index,
		resolver: resolver,
	}
}

// Search runs a content query with optional course and lesson filters.
// An unresolvable course name short-circuits with a message naming it;
// falling back to an unfiltered search could answer from the wrong course.
func (s *Searcher) Search(ctx context.Context, query, courseName string, lesson *int) (*Result, error) {
	var filter types.ContentFilter

	if courseName != "" {
		title, ok, err := s.resolver.Resolve(ctx, courseName)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Result{Message: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
		}
		filter.CourseTitle = title
	}
	filter.Lesson = lesson

	results, err := s.index.QueryContent(ctx, query, filter, s.config.Limit)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Result{Message: noResultsMessage(filter)}, nil
	}

	return &Result{Results: results}, nil
}

func noResultsMessage(filter types.ContentFilter) string {
	var scope []string
	if filter.CourseTitle != "" {
		scope = append(scope, fmt.Sprintf("in course '%s'", filter.CourseTitle))
	}
	if filter.Lesson != nil {
		scope = append(scope, fmt.Sprintf("in lesson %d", *filter.Lesson))
	}
	if len(scope) == 0 {
		return "No relevant content found."
	}
	return fmt.Sprintf("No relevant content found %s.", strings.Join(scope, " "))
}
