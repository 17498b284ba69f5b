package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/pkg/rag"
	"github.com/xhad/sage/pkg/search"
)

func newTestRegistry(t *testing.T, index *fakeIndex) *search.Registry {
	t.Helper()
	resolver := search.NewResolver(index, 0.75)
	searcher := search.NewSearcher(search.SearcherConfig{Limit: 5}, index, resolver)
	registry := search.NewRegistry()
	require.NoError(t, registry.Register(search.NewTool(searcher)))
	return registry
}

func newTestOrchestrator(t *testing.T, generator rag.Generator, index *fakeIndex, maxHistory int) (*rag.Orchestrator, *rag.SessionStore) {
	t.Helper()
	sessions := rag.NewSessionStore(maxHistory)
	orch := rag.NewOrchestrator(rag.OrchestratorConfig{}, generator, newTestRegistry(t, index), sessions)
	return orch, sessions
}

func TestOrchestratorDirectAnswer(t *testing.T) {
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		textResponse("2+2 is 4."),
	}}
	index := newFakeIndex()
	orch, sessions := newTestOrchestrator(t, generator, index, 2)

	answer, citations, err := orch.Answer(context.Background(), "What is 2+2?", "s1")
	require.NoError(t, err)

	assert.Equal(t, "2+2 is 4.", answer)
	assert.Empty(t, citations)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 0, index.contentQueries, "no search for general-knowledge questions")

	history := sessions.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, "What is 2+2?", history[0].Query)
	assert.Equal(t, "2+2 is 4.", history[0].Answer)
}

func TestOrchestratorToolRound(t *testing.T) {
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		toolCallResponse("call-1", search.ToolName, `{"query": "neural networks"}`),
		textResponse("Neural networks are inspired by biological neurons."),
	}}
	index := newFakeIndex()
	index.results = []models.SearchResult{
		{Content: "Neural networks are inspired by biological neurons.", CourseTitle: "Intro to AI", Lesson: lesson(1)},
	}
	orch, _ := newTestOrchestrator(t, generator, index, 2)

	answer, citations, err := orch.Answer(context.Background(), "What are neural networks inspired by?", "s1")
	require.NoError(t, err)

	assert.Contains(t, answer, "biological neurons")
	require.Len(t, citations, 1)
	assert.Equal(t, "Intro to AI", citations[0].CourseTitle)
	require.NotNil(t, citations[0].Lesson)
	assert.Equal(t, 1, *citations[0].Lesson)
	assert.Equal(t, 2, generator.calls)

	// The tool output went back to the model as a tool message.
	var sawToolMessage bool
	for _, msg := range generator.lastMessages {
		if msg.Role == llms.ChatMessageTypeTool {
			sawToolMessage = true
		}
	}
	assert.True(t, sawToolMessage)
}

func TestOrchestratorBoundedToolRounds(t *testing.T) {
	// A model that asks for a tool on every turn still gets exactly two
	// calls; the second round's tool request is not dispatched.
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		toolCallResponse("call-1", search.ToolName, `{"query": "first"}`),
		toolCallResponse("call-2", search.ToolName, `{"query": "second"}`),
	}}
	index := newFakeIndex()
	index.results = []models.SearchResult{
		{Content: "chunk", CourseTitle: "Intro to AI", Lesson: lesson(1)},
	}
	orch, _ := newTestOrchestrator(t, generator, index, 2)

	_, _, err := orch.Answer(context.Background(), "loop?", "s1")
	require.NoError(t, err)

	assert.Equal(t, 2, generator.calls)
	assert.Equal(t, 1, index.contentQueries, "only the first round's search runs")
}

func TestOrchestratorCitationsResetBetweenQueries(t *testing.T) {
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		toolCallResponse("call-1", search.ToolName, `{"query": "neural networks"}`),
		textResponse("answer one"),
		textResponse("answer two"),
	}}
	index := newFakeIndex()
	index.results = []models.SearchResult{
		{Content: "chunk", CourseTitle: "Intro to AI", Lesson: lesson(1)},
	}
	orch, _ := newTestOrchestrator(t, generator, index, 2)

	_, citations, err := orch.Answer(context.Background(), "first", "s1")
	require.NoError(t, err)
	require.Len(t, citations, 1)

	// The follow-up answers directly; stale citations must not leak over.
	_, citations, err = orch.Answer(context.Background(), "second", "s1")
	require.NoError(t, err)
	assert.Empty(t, citations)
}

func TestOrchestratorHistoryInPrompt(t *testing.T) {
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		textResponse("answer"),
	}}
	orch, sessions := newTestOrchestrator(t, generator, newFakeIndex(), 2)
	sessions.Append("s1", "earlier question", "earlier answer")

	_, _, err := orch.Answer(context.Background(), "follow-up", "s1")
	require.NoError(t, err)

	require.Len(t, generator.lastMessages, 4) // system, prior human, prior ai, new human
	assert.Equal(t, llms.ChatMessageTypeSystem, generator.lastMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, generator.lastMessages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, generator.lastMessages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, generator.lastMessages[3].Role)
}

func TestOrchestratorLLMErrorPropagates(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("connection refused")}
	orch, sessions := newTestOrchestrator(t, generator, newFakeIndex(), 2)

	_, _, err := orch.Answer(context.Background(), "anything", "s1")
	assert.True(t, errors.Is(err, models.ErrLLMUnavailable))
	assert.Empty(t, sessions.History("s1"), "failed queries leave no exchange behind")
}

func TestOrchestratorUnknownToolPropagates(t *testing.T) {
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		toolCallResponse("call-1", "bogus_tool", `{}`),
		textResponse("unreachable"),
	}}
	orch, _ := newTestOrchestrator(t, generator, newFakeIndex(), 2)

	_, _, err := orch.Answer(context.Background(), "anything", "s1")
	assert.True(t, errors.Is(err, models.ErrUnknownTool))
}

func TestOrchestratorToolFailureBecomesOutputText(t *testing.T) {
	// Missing required query parameter: a recoverable tool failure the
	// model should see as text, not a request failure.
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		toolCallResponse("call-1", search.ToolName, `{}`),
		textResponse("graceful answer"),
	}}
	orch, _ := newTestOrchestrator(t, generator, newFakeIndex(), 2)

	answer, _, err := orch.Answer(context.Background(), "anything", "s1")
	require.NoError(t, err)
	assert.Equal(t, "graceful answer", answer)

	var toolOutput string
	for _, msg := range generator.lastMessages {
		if msg.Role == llms.ChatMessageTypeTool {
			if resp, ok := msg.Parts[0].(llms.ToolCallResponse); ok {
				toolOutput = resp.Content
			}
		}
	}
	assert.Contains(t, toolOutput, "Tool call failed")
}

func TestOrchestratorUnresolvedCourseBecomesOutputText(t *testing.T) {
	generator := &fakeGenerator{responses: []*llms.ContentResponse{
		toolCallResponse("call-1", search.ToolName, `{"query": "anything", "course_name": "Quantum Cooking"}`),
		textResponse("I could not find that course."),
	}}
	orch, _ := newTestOrchestrator(t, generator, newFakeIndex(), 2)

	answer, citations, err := orch.Answer(context.Background(), "anything", "s1")
	require.NoError(t, err)
	assert.Equal(t, "I could not find that course.", answer)
	assert.Empty(t, citations)

	var toolOutput string
	for _, msg := range generator.lastMessages {
		if msg.Role == llms.ChatMessageTypeTool {
			if resp, ok := msg.Parts[0].(llms.ToolCallResponse); ok {
				toolOutput = resp.Content
			}
		}
	}
	assert.Contains(t, toolOutput, "Quantum Cooking")
}
