package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

// ToolName is the name the model uses to request a content search.
const ToolName = "search_course_content"

var (
	_ types.Tool          = (*Tool)(nil)
	_ types.SourceTracker = (*Tool)(nil)
)

// Tool exposes the Searcher to the model behind a declared schema and
// records the citations of its most recent invocation.
type Tool struct {
	searcher *Searcher

	mu          sync.Mutex
	lastSources []models.Citation
}

func NewTool(searcher *Searcher) *Tool {
	return &Tool{searcher: searcher}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Schema() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: ToolName,
			Description: "Search the course materials for content relevant to a question. " +
				"Use course_name to restrict the search to one course (partial names are fine) " +
				"and lesson_number to restrict it to one lesson.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to look for in the course content",
					},
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title, exact or partial (e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": map[string]any{
						"type":        "integer",
						"description": "Specific lesson number to search within (e.g. 1, 2)",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Execute runs the search and renders each hit as
// "[<course> - Lesson <n>] <chunk text>"; course-level chunks omit the
// lesson segment. As a side effect it overwrites the held citation list
// with one entry per distinct (course, lesson) pair, in result order.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("search tool requires a 'query' parameter")
	}

	courseName, _ := args["course_name"].(string)
	lesson := intArg(args, "lesson_number")

	result, err := t.searcher.Search(ctx, query, courseName, lesson)
	if err != nil {
		return "", err
	}

	if result.Message != "" {
		t.setSources(nil)
		return result.Message, nil
	}

	var blocks []string
	for _, hit := range result.Results {
		header := "[" + hit.CourseTitle + "]"
		if hit.Lesson != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", hit.CourseTitle, *hit.Lesson)
		}
		blocks = append(blocks, header+" "+hit.Content)
	}

	t.setSources(collectCitations(result.Results))

	return strings.Join(blocks, "\n\n"), nil
}

func (t *Tool) LastSources() []models.Citation {
	t.mu.Lock()
	defer t.mu.Unlock()
	sources := make([]models.Citation, len(t.lastSources))
	copy(sources, t.lastSources)
	return sources
}

func (t *Tool) ResetSources() {
	t.setSources(nil)
}

func (t *Tool) setSources(sources []models.Citation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSources = sources
}

// collectCitations deduplicates (course, lesson) pairs preserving
// first-seen order.
func collectCitations(results []models.SearchResult) []models.Citation {
	seen := make(map[string]bool)
	var citations []models.Citation

	for _, hit := range results {
		key := hit.CourseTitle
		if hit.Lesson != nil {
			key = fmt.Sprintf("%s#%d", hit.CourseTitle, *hit.Lesson)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, models.Citation{
			CourseTitle: hit.CourseTitle,
			Lesson:      hit.Lesson,
			LessonLink:  hit.LessonLink,
		})
	}

	return citations
}

func intArg(args map[string]any, key string) *int {
	// JSON numbers arrive as float64; some providers hand integers through
	// as strings.
	switch v := args[key].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return &n
		}
	}
	return nil
}
