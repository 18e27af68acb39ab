package provider

import "encoding/json"

type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
)

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role    Role
	Content []ContentPart
	Name    string

	// ToolCallID associates a tool result message (role=tool) with the
	// prior tool call that produced it.
	ToolCallID string
}

type ContentPart interface {
	isContentPart()
}

type TextPart struct{ Text string }

func (TextPart) isContentPart() {}

// ImagePart carries either a remote URL or inline base64 data. OpenAI
// accepts both (image_url, data URL); Anthropic only inline base64 sources.
type ImagePart struct {
	URL       string
	MediaType string
	Data      []byte
}

func (ImagePart) isContentPart() {}

type ToolCallPart struct {
	ID   string
	Name string
	Args json.RawMessage
}

func (ToolCallPart) isContentPart() {}

type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

type Delta struct {
	Text      string
	ToolCalls []ToolCallDelta
}

type ToolCallDelta struct {
	Index int
	ID    string
	Name  string
	// ArgumentsDelta is a fragment of the JSON arguments string as it
	// arrives during streaming; it is not valid JSON on its own.
	ArgumentsDelta string
}
