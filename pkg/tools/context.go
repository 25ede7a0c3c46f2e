package tools

import "context"

// AgentContext carries the current agent's identity and filesystem roots.
// Go has no goroutine-local storage, so tools read it back out of the
// context.Context passed into Call rather than out of an ambient global:
// a value installed by Scope is visible only to code holding that exact
// context or a descendant of it, which gives each concurrently running
// agent its own view without any locking.
type AgentContext struct {
	AgentID   string
	Workspace string
	MemoryDir string
}

type agentContextKey struct{}

// Scope returns a child of ctx with ac installed as the current agent's
// tool context. Any tool executed with the returned/derived context sees
// ac via AgentContextFrom.
func Scope(ctx context.Context, ac AgentContext) context.Context {
	return context.WithValue(ctx, agentContextKey{}, ac)
}

// AgentContextFrom retrieves the current AgentContext, if one was
// installed by Scope.
func AgentContextFrom(ctx context.Context) (AgentContext, bool) {
	ac, ok := ctx.Value(agentContextKey{}).(AgentContext)
	return ac, ok
}
