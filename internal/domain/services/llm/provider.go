package llm

import (
	"context"
	"encoding/json"
)

// Provider defines the interface the generation backend must implement.
// This abstraction keeps the orchestrator independent of the concrete
// model vendor and allows a mock provider in dev and tests.
type Provider interface {
	// Generate performs a blocking completion and returns the full text.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Stream performs a streaming completion. The returned channel emits
	// events in production order and is closed after a Done or Error event.
	Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g. "anthropic", "lorem")
	Name() string
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one typed unit of message content. Text blocks carry
// Text; tool_use blocks carry ToolUseID/ToolName/ToolInput; tool_result
// blocks carry ToolUseID and Text (the result payload).
type ContentBlock struct {
	Type      string
	Text      string
	ToolUseID string
	ToolName  string
	ToolInput json.RawMessage
	IsError   bool
}

// TextBlock builds a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// Message represents a single message in the conversation.
type Message struct {
	Role   string
	Blocks []ContentBlock
}

// TextMessage builds a single-text-block message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Blocks: []ContentBlock{TextBlock(text)}}
}

// ToolDefinition describes a tool the model may invoke during streaming.
type ToolDefinition struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// GenerateRequest contains the parameters for a generation request.
// Messages carry the full prior session memory as context.
type GenerateRequest struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// GenerateResponse is the result of a blocking completion.
type GenerateResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// StreamEvent kinds
type EventType string

const (
	// EventText carries an incremental text chunk.
	EventText EventType = "text"
	// EventToolUse carries one complete tool invocation (emitted once the
	// provider has accumulated the full input JSON for the call).
	EventToolUse EventType = "tool_use"
	// EventDone signals clean end-of-stream with the final stop reason.
	EventDone EventType = "done"
	// EventError signals stream failure; the channel closes afterwards.
	EventError EventType = "error"
)

// ToolUse is a structured tool invocation produced by the model.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// StreamEvent is one element of a streaming response.
type StreamEvent struct {
	Type       EventType
	Text       string
	ToolUse    *ToolUse
	StopReason string
	Err        error
}
