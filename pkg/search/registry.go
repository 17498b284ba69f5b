package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

// Registry maps tool names to tool instances. Dispatch is a plain map
// lookup; an unregistered name is a programming error, not something to
// paper over with tool output.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]types.Tool
	order    []string
	lastUsed string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]types.Tool)}
}

func (r *Registry) Register(tool types.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Schemas returns every registered tool schema in registration order.
func (r *Registry) Schemas() []llms.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]llms.Tool, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.tools[name].Schema())
	}
	return schemas
}

func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.tools[name]
	if ok {
		r.lastUsed = name
	}
	r.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownTool, name)
	}
	return tool.Execute(ctx, args)
}

// LastSources returns the citations recorded by whichever tool executed
// most recently, if that tool tracks sources.
func (r *Registry) LastSources() []models.Citation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lastUsed == "" {
		return nil
	}
	if tracker, ok := r.tools[r.lastUsed].(types.SourceTracker); ok {
		return tracker.LastSources()
	}
	return nil
}

// ResetSources clears the recorded citations on every tracking tool.
func (r *Registry) ResetSources() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range r.tools {
		if tracker, ok := tool.(types.SourceTracker); ok {
			tracker.ResetSources()
		}
	}
	r.lastUsed = ""
}
