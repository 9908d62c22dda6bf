// Package tool provides the registry of operations callable by the
// reasoning model, with declared parameter schemas and argument validation.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jahongir-hotels/voice-concierge/internal/llm"
	"github.com/jahongir-hotels/voice-concierge/pkg/metrics"
)

// HandlerFunc executes a tool with validated arguments and returns a
// spoken sentence. Handlers must not leak raw errors for backend
// failures; an error return is reserved for programming mistakes.
type HandlerFunc func(ctx context.Context, args Args) (string, error)

// ValidationError reports a request the declared schema rejects: an
// unknown tool name, malformed argument JSON, or a missing or mistyped
// argument.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}

type entry struct {
	def     Definition
	handler HandlerFunc
}

// Registry maps tool names to their definitions and handlers.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool definition with its handler.
func (r *Registry) Register(def Definition, handler HandlerFunc) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required for %s", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.tools[def.Name] = entry{def: def, handler: handler}
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(def Definition, handler HandlerFunc) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// LLMTools renders the registry as tool definitions for the LLM.
func (r *Registry) LLMTools() []llm.ToolDefinition {
	defs := r.Definitions()
	out := make([]llm.ToolDefinition, len(defs))
	for i, def := range defs {
		out[i] = llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Schema(),
		}
	}
	return out
}

// Invoke validates raw arguments against the declared schema and runs the
// tool. The returned string is always speakable; an error means the
// request never reached the handler or the handler itself misbehaved.
func (r *Registry) Invoke(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		metrics.RecordToolCall(name, "unknown", 0)
		return "", &ValidationError{Tool: name, Reason: "unknown tool"}
	}

	args, err := e.def.ValidateArgs(raw)
	if err != nil {
		metrics.RecordToolCall(name, "invalid", 0)
		return "", err
	}

	start := time.Now()
	result, err := e.handler(ctx, args)
	if err != nil {
		metrics.RecordToolCall(name, "error", time.Since(start).Seconds())
		return "", err
	}
	metrics.RecordToolCall(name, "ok", time.Since(start).Seconds())
	return result, nil
}
