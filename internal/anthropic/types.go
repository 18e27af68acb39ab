package anthropic

import "encoding/json"

// Wire shapes for the /v1/messages endpoint, anthropic-version 2023-06-01.

type messagesRequest struct {
	Model         string            `json:"model"`
	Messages      []message         `json:"messages"`
	System        string            `json:"system,omitempty"`
	MaxTokens     int               `json:"max_tokens"`
	Metadata      *metadata         `json:"metadata,omitempty"`
	StopSequences []string          `json:"stop_sequences,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	Temperature   *float32          `json:"temperature,omitempty"`
	TopP          *float32          `json:"top_p,omitempty"`
	TopK          *int              `json:"top_k,omitempty"`
	Tools         []tool            `json:"tools,omitempty"`
}

type metadata struct {
	UserID string `json:"user_id,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is the union of all block shapes: text, image, tool_use and
// tool_result. Only the fields matching Type are populated.
type contentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *imageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type messagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []contentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence"`
	Usage        usage          `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// streamEvent is the envelope for every SSE payload. The populated fields
// depend on Type: message_start carries Message, content_block_start carries
// Index and ContentBlock, the delta events carry Index and Delta, and
// message_delta additionally carries Usage.
type streamEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index"`
	Message      *messagesResponse `json:"message"`
	ContentBlock *contentBlock     `json:"content_block"`
	Delta        *eventDelta       `json:"delta"`
	Usage        *usage            `json:"usage"`
	Error        *apiError         `json:"error"`
}

// eventDelta is the union of the content_block_delta bodies (text_delta,
// input_json_delta) and the message_delta body (stop_reason, stop_sequence).
type eventDelta struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	PartialJSON  string `json:"partial_json"`
	StopReason   string `json:"stop_reason"`
	StopSequence string `json:"stop_sequence"`
}

const (
	eventMessageStart      = "message_start"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
	eventContentBlockStart = "content_block_start"
	eventContentBlockDelta = "content_block_delta"
	eventContentBlockStop  = "content_block_stop"
	eventPing              = "ping"
	eventError             = "error"
)

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Type  string    `json:"type"`
	Error *apiError `json:"error"`
}
