package tools

import (
	"context"
	"fmt"
)

// SubagentRunner runs a single bounded agent-loop interaction for a
// subagent task and returns the assistant's final textual reply. The
// concrete implementation lives in the agent package; tools depends only
// on this function type to avoid an import cycle.
type SubagentRunner func(ctx context.Context, agentID, task string) (string, error)

// SubagentSpawner is the subset of subagent.Manager the Spawn tool needs.
type SubagentSpawner interface {
	SpawnFn(ctx context.Context, label string, fn func(ctx context.Context) (string, error)) (string, error)
}

// SpawnTool wraps SubagentManager.SpawnFn, launching a bounded background
// agent-loop interaction and returning immediately with the new handle id.
type SpawnTool struct {
	manager SubagentSpawner
	runner  SubagentRunner
	agentID string
}

func NewSpawnTool(manager SubagentSpawner, runner SubagentRunner, agentID string) *SpawnTool {
	return &SpawnTool{manager: manager, runner: runner, agentID: agentID}
}

func (t *SpawnTool) Name() string        { return "spawn" }
func (t *SpawnTool) Description() string { return "Spawn a background subagent to work on a task" }
func (t *SpawnTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task":  map[string]interface{}{"type": "string", "description": "Task description for the subagent"},
			"label": map[string]interface{}{"type": "string", "description": "Short human-readable label"},
		},
		"required": []string{"task"},
	}
}

func (t *SpawnTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	task, err := stringArg(args, "task")
	if err != nil {
		return "", err
	}
	label := optionalStringArg(args, "label")
	if label == "" {
		label = truncateLabel(task, 50)
	}

	agentID := t.agentID
	if ac, ok := AgentContextFrom(ctx); ok && ac.AgentID != "" {
		agentID = ac.AgentID
	}

	id, err := t.manager.SpawnFn(ctx, label, func(taskCtx context.Context) (string, error) {
		return t.runner(taskCtx, agentID, task)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("spawned subagent %q (id=%s)", label, id), nil
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
