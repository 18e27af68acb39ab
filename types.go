// Package aiwire provides typed client bindings for LLM providers: blocking
// and streaming chat calls, embeddings, structured output and a small tool
// loop, on top of per-vendor wire codecs in internal packages.
package aiwire

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ModelRef identifies a model on a provider. Vendor packages (openai,
// anthropic) construct client-bound refs.
type ModelRef interface {
	Provider() string
	Name() string
}

type BaseRequest struct {
	Model ModelRef

	Messages []Message
	Tools    []Tool
	ToolLoop *ToolLoopOptions

	Headers map[string]string
	Timeout time.Duration

	MaxTokens   *int
	Temperature *float32
	TopP        *float32
	TopK        *int
	Stop        []string

	Metadata map[string]string
}

type GenerateTextRequest struct {
	BaseRequest
}

type GenerateTextResponse struct {
	Text string

	Message      Message
	Usage        Usage
	FinishReason FinishReason
}

type StreamTextRequest struct {
	BaseRequest
}

type Schema struct {
	JSON json.RawMessage
}

func JSONSchema(raw json.RawMessage) Schema {
	return Schema{JSON: raw}
}

type Tool struct {
	Name        string
	Description string
	InputSchema Schema
	Handler     ToolHandler
}

type ToolHandler func(ctx context.Context, input json.RawMessage) (any, error)

type ToolLoopOptions struct {
	MaxIterations int
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

	ToolCallID string // required for role=tool messages
}

type ContentPart interface {
	isContentPart()
}

type TextPart struct{ Text string }

func (TextPart) isContentPart() {}

// ImagePart is either a remote URL or inline data. Anthropic requires the
// inline form; OpenAI accepts both.
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

func System(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart{Text: text}}}
}

func User(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart{Text: text}}}
}

func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart{Text: text}}}
}

// ToolResultForCall builds a role=tool message carrying a tool's output,
// associated with the model tool call that requested it.
func ToolResultForCall(toolCallID, toolName string, value any) Message {
	raw, err := json.Marshal(value)
	if err != nil {
		raw = json.RawMessage(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return Message{
		Role:       RoleTool,
		Name:       toolName,
		ToolCallID: toolCallID,
		Content:    []ContentPart{TextPart{Text: string(raw)}},
	}
}

type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
	FinishUnknown   FinishReason = "unknown"
)

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func addUsage(a, b Usage) Usage {
	return Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}

func cloneStringMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
