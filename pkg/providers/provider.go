// Package providers defines the model-provider contract the agent loop
// consumes. Concrete HTTP clients for Anthropic/OpenAI/etc. are an
// external collaborator and out of scope for this module; only the
// interface lives here.
package providers

import "context"

// Message is a single turn of chat history passed to a completion call.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolDefinition describes a tool available to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Usage tracks token consumption for a single completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest is the input to a single model completion call.
type CompletionRequest struct {
	Preamble    string
	ChatHistory []Message
	Prompt      Message
	Tools       []ToolDefinition
	Documents   []string
	Temperature *float64
	MaxTokens   *int
	Additional  map[string]interface{}
}

// ContentKind discriminates items in a CompletionResponse.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentToolCall
)

// ContentItem is one item of assistant-content returned by a completion.
type ContentItem struct {
	Kind Kind
	Text string
	Call ToolCall
}

// Kind is an alias retained for readability at call sites.
type Kind = ContentKind

// CompletionResponse is the result of a single model completion call.
type CompletionResponse struct {
	Content []ContentItem
	Usage   *Usage
}

// Model is the contract the agent loop depends on. A concrete
// implementation (Anthropic, OpenAI, a local model, a test double) lives
// outside this module.
type Model interface {
	Completion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Text is a convenience constructor for a text content item.
func Text(s string) ContentItem { return ContentItem{Kind: ContentText, Text: s} }

// Call is a convenience constructor for a tool-call content item.
func Call(tc ToolCall) ContentItem { return ContentItem{Kind: ContentToolCall, Call: tc} }
