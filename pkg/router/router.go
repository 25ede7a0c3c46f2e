// Package router composes the directive parser, session manager, and
// per-agent agent loops into the inbound→outbound pipeline: resolve a
// session, split directives, dispatch each directive's content to its
// target agent's loop, and let replies flow back out over the bus
// inheriting the originating channel and chat id.
package router

import (
	"context"
	"log/slog"

	"github.com/synvek/relaymind/pkg/bus"
	"github.com/synvek/relaymind/pkg/directive"
	"github.com/synvek/relaymind/pkg/session"
)

const defaultAgentID = "main"

// AgentDispatcher is the subset of an agent loop the router needs: a way
// to hand it a synthesized inbound message for a given session.
type AgentDispatcher interface {
	Submit(sessionID session.ID, channel, chatID, content string)
}

// Registry resolves an agent id (role name, or "main" for the Commander)
// to its dispatcher.
type Registry interface {
	Dispatcher(agentID string) (AgentDispatcher, bool)
}

// Router is the composition root for a single message-bus instance.
type Router struct {
	sessions *session.Manager
	agents   Registry
}

func New(sessions *session.Manager, agents Registry) *Router {
	return &Router{sessions: sessions, agents: agents}
}

// HandleInbound resolves the session, splits the message into directives,
// and dispatches each directive's content to its target agent.
func (r *Router) HandleInbound(ctx context.Context, msg bus.InboundMessage) {
	directives := directive.Parse(msg.Content)

	for _, d := range directives {
		agentID := defaultAgentID
		if d.Target != "" {
			agentID = d.Target
		}

		sessionID := session.ResolveSession(agentID, msg.Channel, msg.ChatID, msg.Metadata)

		dispatcher, ok := r.agents.Dispatcher(agentID)
		if !ok {
			slog.Warn("router: unknown agent target", "agent", agentID, "channel", msg.Channel)
			continue
		}

		dispatcher.Submit(sessionID, msg.Channel, msg.ChatID, d.Content)
	}
}

// SessionsForChannel exposes the router's SessionManager for read-only
// listing (e.g. a sessions_list tool), main agent first.
func (r *Router) SessionsForChannel(channel string, scope session.Scope, identifier string) []session.SessionView {
	return r.sessions.GetSessionsForChannel(channel, scope, identifier)
}

// HandleCronFiring synthesizes an inbound message from a cron payload and
// routes it exactly as an adapter-sourced message would be, defaulting to
// the "cron" channel when the payload did not specify one.
func (r *Router) HandleCronFiring(ctx context.Context, message, channel, to string) {
	if channel == "" {
		channel = "cron"
	}
	r.HandleInbound(ctx, bus.InboundMessage{
		Channel: channel,
		ChatID:  to,
		Content: message,
	})
}
