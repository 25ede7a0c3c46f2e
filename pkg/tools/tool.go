// Package tools implements the typed tool registry and the task-local
// execution context tools read to find their workspace, memory store,
// and owning agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Tool is the capability every registered tool exposes.
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() map[string]interface{}
	Call(ctx context.Context, args map[string]interface{}) (string, error)
}

// Definition is the provider-facing descriptor for a tool.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Registry holds a name -> tool mapping shared by reference. Tool names
// are unique within a registry; registering a duplicate name fails.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, failing if its name is already registered.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q is already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// Definitions returns provider-facing descriptors for every registered tool.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParametersSchema(),
		})
	}
	return out
}

// Execute dispatches a named tool call and converts any error into the
// "Error: {e}" tool-result form the agent loop hands back to the model.
// A missing tool is itself reported this way rather than panicking.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) string {
	t, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	out, err := t.Call(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %s", err)
	}
	return out
}

// stringArg reads a required string argument, returning an error the
// caller can surface as a tool-result error.
func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

func optionalStringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func optionalBoolArg(args map[string]interface{}, key string) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// marshalSchema is a small helper for tools that build their schema
// programmatically and want to sanity-check it marshals cleanly in tests.
func marshalSchema(schema map[string]interface{}) ([]byte, error) {
	return json.Marshal(schema)
}
