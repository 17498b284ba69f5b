package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/sage/internal/models"
)

// DefaultSystemPrompt directs the model to search at most once per query
// and only when the question actually needs course material.
const DefaultSystemPrompt = `You are a teaching assistant for a catalog of courses. ` +
	`Answer questions about course content by searching the course materials with the search tool. ` +
	`Search at most once per question, and only when the question requires knowledge of the courses; ` +
	`answer general-knowledge questions directly from what you already know, without searching. ` +
	`Base course answers on the search results, keep them concise, and do not mention the search process itself.`

// Generator is the LLM capability: given messages and tool schemas, return
// either final text or tool-invocation requests.
type Generator interface {
	Generate(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error)
}

// ToolRunner dispatches tool invocations and surfaces the citations the
// most recent invocation produced.
type ToolRunner interface {
	Schemas() []llms.Tool
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
	LastSources() []models.Citation
	ResetSources()
}

type OrchestratorConfig struct {
	SystemPrompt string
}

// Orchestrator runs the tool-calling loop: prompt assembly, the first model
// call, at most one round of tool dispatch, and the final answer. The bound
// is structural: after tool results are supplied the model gets exactly one
// more call, and any further tool requests in that call are not dispatched.
type Orchestrator struct {
	config    OrchestratorConfig
	generator Generator
	tools     ToolRunner
	sessions  *SessionStore
}

func NewOrchestrator(config OrchestratorConfig, generator Generator, tools ToolRunner, sessions *SessionStore) *Orchestrator {
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return &Orchestrator{
		config:    config,
		generator: generator,
		tools:     tools,
		sessions:  sessions,
	}
}

// Answer resolves one user query within a session and returns the final
// answer text plus the citations gathered during the round.
func (o *Orchestrator) Answer(ctx context.Context, query, sessionID string) (string, []models.Citation, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, o.config.SystemPrompt),
	}
	for _, exchange := range o.sessions.History(sessionID) {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, exchange.Query))
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, exchange.Answer))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, query))

	tools := o.tools.Schemas()

	response, err := o.generator.Generate(ctx, messages, tools)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", models.ErrLLMUnavailable, err)
	}
	choice := response.Choices[0]

	if len(choice.ToolCalls) > 0 {
		messages, err = o.dispatchTools(ctx, messages, choice)
		if err != nil {
			return "", nil, err
		}

		response, err = o.generator.Generate(ctx, messages, tools)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", models.ErrLLMUnavailable, err)
		}
		// A second attempt to call tools is not dispatched; whatever text
		// came with it is the final answer.
		choice = response.Choices[0]
	}

	answer := choice.Content
	citations := o.tools.LastSources()
	o.tools.ResetSources()
	o.sessions.Append(sessionID, query, answer)

	return answer, citations, nil
}

// dispatchTools executes every requested invocation and appends the tool
// outputs to the conversation for the follow-up model call.
func (o *Orchestrator) dispatchTools(ctx context.Context, messages []llms.MessageContent, choice *llms.ContentChoice) ([]llms.MessageContent, error) {
	assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
	}
	for _, call := range choice.ToolCalls {
		assistant.Parts = append(assistant.Parts, call)
	}
	messages = append(messages, assistant)

	for _, call := range choice.ToolCalls {
		output, err := o.runTool(ctx, call)
		if err != nil {
			return nil, err
		}
		messages = append(messages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.FunctionCall.Name,
				Content:    output,
			}},
		})
	}

	return messages, nil
}

// runTool executes one invocation. Recoverable tool failures become output
// text so the model can still answer; misconfiguration and backend outages
// propagate as failures.
func (o *Orchestrator) runTool(ctx context.Context, call llms.ToolCall) (string, error) {
	var args map[string]any
	if call.FunctionCall.Arguments != "" {
		if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
			return fmt.Sprintf("Tool call failed: invalid arguments: %v", err), nil
		}
	}

	output, err := o.tools.Execute(ctx, call.FunctionCall.Name, args)
	if err != nil {
		if errors.Is(err, models.ErrUnknownTool) || errors.Is(err, models.ErrIndexUnavailable) {
			return "", err
		}
		return fmt.Sprintf("Tool call failed: %v", err), nil
	}
	return output, nil
}
