package router

import (
	"context"
	"testing"

	"github.com/synvek/relaymind/pkg/bus"
	"github.com/synvek/relaymind/pkg/session"
)

type fakeDispatcher struct {
	submissions []submission
}

type submission struct {
	sessionID session.ID
	channel   string
	chatID    string
	content   string
}

func (f *fakeDispatcher) Submit(sessionID session.ID, channel, chatID, content string) {
	f.submissions = append(f.submissions, submission{sessionID, channel, chatID, content})
}

type fakeRegistry struct {
	agents map[string]*fakeDispatcher
}

func (r *fakeRegistry) Dispatcher(agentID string) (AgentDispatcher, bool) {
	d, ok := r.agents[agentID]
	return d, ok
}

func TestHandleInbound_RoutesToCommanderByDefault(t *testing.T) {
	main := &fakeDispatcher{}
	reg := &fakeRegistry{agents: map[string]*fakeDispatcher{"main": main}}
	r := New(session.NewManager(), reg)

	r.HandleInbound(context.Background(), bus.InboundMessage{
		Channel: "telegram", ChatID: "c1", Content: "hello there",
	})

	if len(main.submissions) != 1 || main.submissions[0].content != "hello there" {
		t.Fatalf("expected commander to receive the message, got %+v", main.submissions)
	}
}

func TestHandleInbound_SplitsAcrossTargets(t *testing.T) {
	main := &fakeDispatcher{}
	dev := &fakeDispatcher{}
	reg := &fakeRegistry{agents: map[string]*fakeDispatcher{"main": main, "dev": dev}}
	r := New(session.NewManager(), reg)

	r.HandleInbound(context.Background(), bus.InboundMessage{
		Channel: "telegram", ChatID: "c1", Content: "hi @@dev run tests",
	})

	if len(main.submissions) != 1 || main.submissions[0].content != "hi" {
		t.Fatalf("expected commander directive, got %+v", main.submissions)
	}
	if len(dev.submissions) != 1 || dev.submissions[0].content != "run tests" {
		t.Fatalf("expected dev directive, got %+v", dev.submissions)
	}
}

func TestHandleInbound_UnknownTargetIsSkipped(t *testing.T) {
	reg := &fakeRegistry{agents: map[string]*fakeDispatcher{}}
	r := New(session.NewManager(), reg)

	// Should not panic even though no agent is registered.
	r.HandleInbound(context.Background(), bus.InboundMessage{
		Channel: "telegram", ChatID: "c1", Content: "@@ghost do something",
	})
}

func TestHandleCronFiring_DefaultsChannel(t *testing.T) {
	main := &fakeDispatcher{}
	reg := &fakeRegistry{agents: map[string]*fakeDispatcher{"main": main}}
	r := New(session.NewManager(), reg)

	r.HandleCronFiring(context.Background(), "good morning", "", "user-1")

	if len(main.submissions) != 1 || main.submissions[0].channel != "cron" {
		t.Fatalf("expected cron channel default, got %+v", main.submissions)
	}
}
