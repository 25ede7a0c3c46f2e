// Command relaymind wires the core package set into a runnable process:
// a message bus, one agent loop per configured agent, the permission and
// approval gates in front of the shell tool, and the cron tick loop —
// everything this module owns, minus the channel adapters and the model
// provider client, both external collaborators supplied at deploy time.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/synvek/relaymind/pkg/agent"
	"github.com/synvek/relaymind/pkg/approval"
	"github.com/synvek/relaymind/pkg/bus"
	"github.com/synvek/relaymind/pkg/cron"
	"github.com/synvek/relaymind/pkg/permission"
	"github.com/synvek/relaymind/pkg/providers"
	"github.com/synvek/relaymind/pkg/router"
	"github.com/synvek/relaymind/pkg/session"
	"github.com/synvek/relaymind/pkg/shell"
	"github.com/synvek/relaymind/pkg/subagent"
	"github.com/synvek/relaymind/pkg/tools"
	"github.com/synvek/relaymind/pkg/tracing"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	tracing.NewProvider()

	workspace := envOr("RELAYMIND_WORKSPACE", "./workspace")
	stateDir := envOr("RELAYMIND_STATE_DIR", "./state")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		slog.Error("failed to create workspace", "error", err)
		os.Exit(1)
	}

	sessions := session.NewManager()
	approvals := approval.NewManager(nil)
	permissions := permission.New(defaultPermissionRules(), permission.LevelAllow)
	shellTool := shell.NewTool(workspace, 60, true)
	shellTool.PermissionPolicy = permissions
	shellTool.ApprovalManager = approvals

	registry := tools.NewRegistry()
	mustRegister(registry, tools.NewReadFileTool(workspace, true))
	mustRegister(registry, tools.NewWriteFileTool(workspace, true))
	mustRegister(registry, tools.NewEditFileTool(workspace, true))
	mustRegister(registry, tools.NewListDirTool(workspace, true))
	mustRegister(registry, tools.NewRememberTool("main", filepath.Join(stateDir, "memory")))
	mustRegister(registry, tools.NewListMemoryTool("main", filepath.Join(stateDir, "memory")))
	mustRegister(registry, tools.NewExecTool(shellTool, "", "", ""))

	cronStore, err := cron.NewStore(filepath.Join(stateDir, "cron.json"))
	if err != nil {
		slog.Error("failed to load cron store", "error", err)
		os.Exit(1)
	}
	mustRegister(registry, tools.NewAddCronTool(cronStore, "", "", ""))
	mustRegister(registry, tools.NewListCronTool(cronStore))
	mustRegister(registry, tools.NewDeleteCronTool(cronStore))

	model := stubModel{}

	loops := newLoopSet()
	mainLoop := agent.New(agent.Config{
		AgentID:   "main",
		AgentName: "Commander",
		Model:     model,
		Workspace: workspace,
		Registry:  registry,
		History:   sessions,
		Outbound:  func(m bus.OutboundMessage) { slog.Info("outbound", "channel", m.Channel, "chat_id", m.ChatID, "content", m.Content) },
	})
	loops.add("main", mainLoop)

	subagents := subagent.NewManager(4)
	mustRegister(registry, tools.NewSpawnTool(subagents, agent.NewSubagentRunner(loops), "main"))

	r := router.New(sessions, loops)

	cronSvc := cron.NewService(cronStore, func(ctx context.Context, job cron.Job) error {
		r.HandleCronFiring(ctx, job.Payload.Message, job.Payload.Channel, job.Payload.To)
		return nil
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go mainLoop.Run(ctx)
	go cronSvc.Run(ctx)

	slog.Info("relaymind started", "workspace", workspace)
	<-ctx.Done()
	cronSvc.Stop()
	slog.Info("relaymind stopped")
}

// loopSet is the in-process Registry of per-agent loops, satisfying both
// router.Registry and agent.LoopRegistry.
type loopSet struct {
	loops map[string]*agent.Loop
}

func newLoopSet() *loopSet { return &loopSet{loops: make(map[string]*agent.Loop)} }

func (s *loopSet) add(agentID string, l *agent.Loop) { s.loops[agentID] = l }

func (s *loopSet) Dispatcher(agentID string) (router.AgentDispatcher, bool) {
	l, ok := s.loops[agentID]
	return l, ok
}

func (s *loopSet) Loop(agentID string) (*agent.Loop, bool) {
	l, ok := s.loops[agentID]
	return l, ok
}

// stubModel is a placeholder providers.Model: a concrete HTTP client for
// a real model provider is an external collaborator outside this
// module's scope (spec Non-goals: "LLM provider choice").
type stubModel struct{}

func (stubModel) Completion(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return &providers.CompletionResponse{
		Content: []providers.ContentItem{providers.Text("no model provider configured")},
	}, nil
}

func defaultPermissionRules() []permission.Rule {
	return []permission.Rule{
		{Pattern: "git *", Level: permission.LevelAllow},
		{Pattern: "rm *", Level: permission.LevelRequireApproval},
	}
}

func mustRegister(r *tools.Registry, t tools.Tool) {
	if err := r.Register(t); err != nil {
		slog.Error("failed to register tool", "tool", t.Name(), "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
