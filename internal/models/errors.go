package models

import "errors"

// Only these errors cross the orchestrator boundary. Everything else
// (unresolved course names, empty result sets) is rendered as tool output
// text so the model can still answer gracefully.
var (
	ErrIndexUnavailable = errors.New("embedding index unavailable")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrLLMUnavailable   = errors.New("llm unavailable")
)
