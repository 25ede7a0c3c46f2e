package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/synvek/relaymind/pkg/bus"
	"github.com/synvek/relaymind/pkg/providers"
	"github.com/synvek/relaymind/pkg/session"
	"github.com/synvek/relaymind/pkg/tools"
	"github.com/synvek/relaymind/pkg/tracing"
)

var errIterationLimit = errors.New("agent loop: iteration limit reached with no final reply")

// HistoryStore is the subset of session.Manager the loop needs to read
// and append conversation history for its session.
type HistoryStore interface {
	GetOrCreate(id session.ID) []session.Message
	Append(id session.ID, msg session.Message)
}

// Config configures a Loop instance.
type Config struct {
	AgentID       string
	AgentName     string
	Model         providers.Model
	Workspace     string
	MemoryPath    string
	Registry      *tools.Registry
	History       HistoryStore
	Outbound      func(bus.OutboundMessage)
	MaxIterations int
	Skills        *SkillsLoader
}

// Loop is one agent's message-driven Think→Act→Observe controller. It is
// single-consumer on Inbound and processes one message to completion
// before the next; history is owned exclusively by this loop's
// HistoryStore entry, never shared across concurrently running loops.
type Loop struct {
	cfg     Config
	builder *ContextBuilder
	inbound chan inboundTask
}

type inboundTask struct {
	sessionID session.ID
	channel   string
	chatID    string
	content   string
}

// New creates a Loop. MaxIterations defaults to 15 if unset.
func New(cfg Config) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 15
	}
	return &Loop{
		cfg:     cfg,
		builder: NewContextBuilder(),
		inbound: make(chan inboundTask, 64),
	}
}

// Submit enqueues a synthesized inbound message for this agent's session.
// It does not block on processing.
func (l *Loop) Submit(sessionID session.ID, channel, chatID, content string) {
	l.inbound <- inboundTask{sessionID: sessionID, channel: channel, chatID: chatID, content: content}
}

// Run drains the inbound queue until ctx is cancelled, handling one
// message to completion before pulling the next.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.inbound:
			l.handleMessage(ctx, task)
		}
	}
}

func (l *Loop) handleMessage(ctx context.Context, task inboundTask) {
	ctx = tools.Scope(ctx, tools.AgentContext{
		AgentID:   l.cfg.AgentID,
		Workspace: l.cfg.Workspace,
		MemoryDir: l.cfg.MemoryPath,
	})

	history := l.cfg.History.GetOrCreate(task.sessionID)

	skillsSummary := ""
	if l.cfg.Skills != nil {
		skillsSummary = l.cfg.Skills.BuildSkillsSummary()
	}
	systemPrompt := l.builder.BuildSystemPrompt(l.cfg.AgentName, l.cfg.Workspace, l.cfg.MemoryPath, skillsSummary)

	l.cfg.History.Append(task.sessionID, session.Message{Role: "user", Content: task.content})
	history = append(history, session.Message{Role: "user", Content: task.content})

	reply, ok := l.runIterations(ctx, task.sessionID, systemPrompt, history)
	if !ok {
		slog.Warn("agent loop: iteration limit reached with no final reply", "agent", l.cfg.AgentID, "session", task.sessionID.String())
		return
	}
	if reply == "" {
		return
	}

	l.cfg.History.Append(task.sessionID, session.Message{Role: "assistant", Content: reply})

	if l.cfg.Outbound != nil {
		l.cfg.Outbound(bus.OutboundMessage{
			Channel: task.channel,
			ChatID:  task.chatID,
			Type:    bus.MessageTypeChat,
			Content: reply,
		})
	}
}

// RunOnce runs a single bounded agent-loop interaction over a scratch,
// non-persisted history and returns the assistant's final textual reply.
// This is the primitive the Spawn tool and SubagentManager use: each
// subagent gets its own fresh ToolContext and history, never sharing
// either with the parent loop or with other subagents.
func (l *Loop) RunOnce(ctx context.Context, task string) (string, error) {
	ctx = tools.Scope(ctx, tools.AgentContext{
		AgentID:   l.cfg.AgentID,
		Workspace: l.cfg.Workspace,
		MemoryDir: l.cfg.MemoryPath,
	})

	skillsSummary := ""
	if l.cfg.Skills != nil {
		skillsSummary = l.cfg.Skills.BuildSkillsSummary()
	}
	systemPrompt := l.builder.BuildSystemPrompt(l.cfg.AgentName, l.cfg.Workspace, l.cfg.MemoryPath, skillsSummary)

	history := []session.Message{{Role: "user", Content: task}}
	scratchID := session.ID{AgentID: l.cfg.AgentID, Channel: "subagent"}

	reply, ok := l.runIterationsScratch(ctx, scratchID, systemPrompt, history)
	if !ok {
		return "", errIterationLimit
	}
	return reply, nil
}

// runIterationsScratch is runIterations without persisting appended
// messages back to a shared HistoryStore (subagent histories are
// throwaway).
func (l *Loop) runIterationsScratch(ctx context.Context, sessionID session.ID, systemPrompt string, history []session.Message) (string, bool) {
	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		spanCtx, span := tracing.StartAgentIteration(ctx, l.cfg.AgentID, iteration)
		req := providers.CompletionRequest{
			Preamble:    systemPrompt,
			ChatHistory: toProviderMessages(history),
			Tools:       l.toolDefinitions(),
		}
		resp, err := l.cfg.Model.Completion(spanCtx, req)
		if err != nil {
			tracing.EndWithError(span, err)
			slog.Warn("subagent loop: model completion failed", "agent", l.cfg.AgentID, "error", err)
			return "", false
		}
		tracing.EndWithError(span, nil)

		var textParts []string
		var calls []providers.ToolCall
		for _, item := range resp.Content {
			switch item.Kind {
			case providers.ContentText:
				if item.Text != "" {
					textParts = append(textParts, item.Text)
				}
			case providers.ContentToolCall:
				calls = append(calls, item.Call)
			}
		}

		if len(calls) == 0 {
			return strings.Join(textParts, ""), true
		}

		history = append(history, session.Message{Role: "assistant", Content: strings.Join(textParts, "")})
		for _, call := range calls {
			toolCtx, toolSpan := tracing.StartToolCall(ctx, call.Name)
			result := l.cfg.Registry.Execute(toolCtx, call.Name, call.Arguments)
			toolSpan.End()
			history = append(history, session.Message{Role: "tool", Content: result})
		}
	}
	return "", false
}

func (l *Loop) runIterations(ctx context.Context, sessionID session.ID, systemPrompt string, history []session.Message) (string, bool) {
	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		spanCtx, span := tracing.StartAgentIteration(ctx, l.cfg.AgentID, iteration)

		req := providers.CompletionRequest{
			Preamble:    systemPrompt,
			ChatHistory: toProviderMessages(history),
			Tools:       l.toolDefinitions(),
		}

		resp, err := l.cfg.Model.Completion(spanCtx, req)
		if err != nil {
			tracing.EndWithError(span, err)
			slog.Warn("agent loop: model completion failed", "agent", l.cfg.AgentID, "error", err)
			return "", false
		}
		tracing.EndWithError(span, nil)

		var textParts []string
		var calls []providers.ToolCall
		for _, item := range resp.Content {
			switch item.Kind {
			case providers.ContentText:
				if item.Text != "" {
					textParts = append(textParts, item.Text)
				}
			case providers.ContentToolCall:
				calls = append(calls, item.Call)
			}
		}

		if len(calls) == 0 {
			reply := strings.Join(textParts, "")
			return reply, true
		}

		assistantContent := strings.Join(textParts, "")
		l.cfg.History.Append(sessionID, session.Message{Role: "assistant", Content: assistantContent})
		history = append(history, session.Message{Role: "assistant", Content: assistantContent})

		for _, call := range calls {
			toolCtx, toolSpan := tracing.StartToolCall(ctx, call.Name)
			result := l.cfg.Registry.Execute(toolCtx, call.Name, call.Arguments)
			toolSpan.End()
			msg := session.Message{Role: "tool", Content: result}
			l.cfg.History.Append(sessionID, msg)
			history = append(history, msg)
		}
	}
	return "", false
}

func (l *Loop) toolDefinitions() []providers.ToolDefinition {
	defs := l.cfg.Registry.Definitions()
	out := make([]providers.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, providers.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return out
}

func toProviderMessages(history []session.Message) []providers.Message {
	out := make([]providers.Message, 0, len(history))
	for _, m := range history {
		out = append(out, providers.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
