package agent

import (
	"context"
	"fmt"
)

// Registry of agent IDs to their Loop instances.
type LoopRegistry interface {
	Loop(agentID string) (*Loop, bool)
}

// NewSubagentRunner adapts a LoopRegistry into the tools.SubagentRunner
// function type the Spawn tool depends on, without introducing an import
// cycle between pkg/agent and pkg/tools.
func NewSubagentRunner(loops LoopRegistry) func(ctx context.Context, agentID, task string) (string, error) {
	return func(ctx context.Context, agentID, task string) (string, error) {
		loop, ok := loops.Loop(agentID)
		if !ok {
			return "", fmt.Errorf("unknown agent %q", agentID)
		}
		return loop.RunOnce(ctx, task)
	}
}
