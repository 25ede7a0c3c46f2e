package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/synvek/relaymind/pkg/bus"
	"github.com/synvek/relaymind/pkg/providers"
	"github.com/synvek/relaymind/pkg/session"
	"github.com/synvek/relaymind/pkg/tools"
)

// fakeModel replies with a canned, ordered sequence of responses; each
// Completion call consumes the next one.
type fakeModel struct {
	mu        sync.Mutex
	responses []*providers.CompletionResponse
	calls     int
}

func (m *fakeModel) Completion(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

// fakeHistory is a minimal in-memory HistoryStore, independent of the real
// session.Manager, for observing exactly what the loop appends.
type fakeHistory struct {
	mu   sync.Mutex
	data map[session.ID][]session.Message
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{data: make(map[session.ID][]session.Message)}
}

func (h *fakeHistory) GetOrCreate(id session.ID) []session.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]session.Message, len(h.data[id]))
	copy(out, h.data[id])
	return out
}

func (h *fakeHistory) Append(id session.ID, msg session.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[id] = append(h.data[id], msg)
}

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input argument" }
func (echoTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (echoTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	return "echoed", nil
}

func TestLoop_Submit_RepliesWhenNoToolCalls(t *testing.T) {
	model := &fakeModel{responses: []*providers.CompletionResponse{
		{Content: []providers.ContentItem{providers.Text("hello back")}},
	}}
	history := newFakeHistory()
	var outbound bus.OutboundMessage
	done := make(chan struct{})

	loop := New(Config{
		AgentID:   "main",
		AgentName: "Commander",
		Model:     model,
		Workspace: t.TempDir(),
		Registry:  tools.NewRegistry(),
		History:   history,
		Outbound: func(m bus.OutboundMessage) {
			outbound = m
			close(done)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	defer cancel()

	sid := session.ID{AgentID: "main", Channel: "telegram", Identifier: "c1"}
	loop.Submit(sid, "telegram", "c1", "hi there")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound reply")
	}

	if outbound.Content != "hello back" {
		t.Fatalf("unexpected outbound content: %q", outbound.Content)
	}
	hist := history.GetOrCreate(sid)
	if len(hist) != 2 || hist[0].Role != "user" || hist[1].Role != "assistant" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestLoop_Submit_ExecutesToolThenReplies(t *testing.T) {
	registry := tools.NewRegistry()
	_ = registry.Register(echoTool{})

	model := &fakeModel{responses: []*providers.CompletionResponse{
		{Content: []providers.ContentItem{
			providers.Text("calling tool"),
			providers.Call(providers.ToolCall{Name: "echo", Arguments: map[string]interface{}{}}),
		}},
		{Content: []providers.ContentItem{providers.Text("done")}},
	}}
	history := newFakeHistory()
	done := make(chan struct{})

	loop := New(Config{
		AgentID:   "main",
		AgentName: "Commander",
		Model:     model,
		Workspace: t.TempDir(),
		Registry:  registry,
		History:   history,
		Outbound:  func(m bus.OutboundMessage) { close(done) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	defer cancel()

	sid := session.ID{AgentID: "main", Channel: "telegram", Identifier: "c1"}
	loop.Submit(sid, "telegram", "c1", "please echo")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound reply")
	}

	hist := history.GetOrCreate(sid)
	var sawTool bool
	for _, m := range hist {
		if m.Role == "tool" && m.Content == "echoed" {
			sawTool = true
		}
	}
	if !sawTool {
		t.Fatalf("expected tool result appended to history, got %+v", hist)
	}
}

func TestLoop_RunOnce_DoesNotPersistToSharedHistory(t *testing.T) {
	model := &fakeModel{responses: []*providers.CompletionResponse{
		{Content: []providers.ContentItem{providers.Text("subagent reply")}},
	}}
	history := newFakeHistory()

	loop := New(Config{
		AgentID:   "dev",
		AgentName: "Dev",
		Model:     model,
		Workspace: t.TempDir(),
		Registry:  tools.NewRegistry(),
		History:   history,
	})

	out, err := loop.RunOnce(context.Background(), "do a background task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "subagent reply" {
		t.Fatalf("unexpected reply: %q", out)
	}
	if len(history.data) != 0 {
		t.Fatalf("expected RunOnce not to touch the shared HistoryStore, got %+v", history.data)
	}
}

func TestLoop_RunOnce_ReturnsErrorAtIterationLimit(t *testing.T) {
	registry := tools.NewRegistry()
	_ = registry.Register(echoTool{})

	// Always calls the tool, never returning a final text-only reply, to
	// exhaust MaxIterations.
	var responses []*providers.CompletionResponse
	for i := 0; i < 3; i++ {
		responses = append(responses, &providers.CompletionResponse{
			Content: []providers.ContentItem{providers.Call(providers.ToolCall{Name: "echo"})},
		})
	}
	model := &fakeModel{responses: responses}

	loop := New(Config{
		AgentID:       "dev",
		AgentName:     "Dev",
		Model:         model,
		Workspace:     t.TempDir(),
		Registry:      registry,
		History:       newFakeHistory(),
		MaxIterations: 3,
	})

	_, err := loop.RunOnce(context.Background(), "loop forever")
	if err != errIterationLimit {
		t.Fatalf("expected errIterationLimit, got %v", err)
	}
}
