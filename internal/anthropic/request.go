package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/provider"
)

// The API rejects requests without max_tokens, so a default is applied when
// the caller does not set one.
const defaultMaxTokens = 4096

func buildRequest(req provider.Request, stream bool) (messagesRequest, error) {
	system, msgs, err := splitMessages(req.Messages)
	if err != nil {
		return messagesRequest{}, err
	}
	if len(msgs) == 0 {
		return messagesRequest{}, fmt.Errorf("at least one non-system message is required")
	}

	var tools []tool
	for _, t := range req.Tools {
		if t.Name == "" {
			return messagesRequest{}, fmt.Errorf("tool name is required")
		}
		tools = append(tools, tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	out := messagesRequest{
		Model:         req.Model,
		Messages:      msgs,
		System:        system,
		MaxTokens:     maxTokens,
		StopSequences: append([]string(nil), req.Stop...),
		Stream:        stream,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		Tools:         tools,
	}
	if uid := req.Metadata["user_id"]; uid != "" {
		out.Metadata = &metadata{UserID: uid}
	}
	return out, nil
}

// splitMessages pulls system messages out into the top-level system prompt
// and converts the rest. Tool results become user-role tool_result blocks;
// consecutive user-role messages are merged because the API wants
// alternating conversational turns.
func splitMessages(in []provider.Message) (string, []message, error) {
	var system []string
	var out []message

	appendMsg := func(role string, blocks []contentBlock) {
		if n := len(out); n > 0 && out[n-1].Role == role && role == "user" {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, message{Role: role, Content: blocks})
	}

	for _, m := range in {
		switch m.Role {
		case provider.RoleSystem:
			system = append(system, textOf(m.Content))

		case provider.RoleUser:
			blocks, err := toContentBlocks(m.Content)
			if err != nil {
				return "", nil, err
			}
			appendMsg("user", blocks)

		case provider.RoleAssistant:
			blocks, err := toContentBlocks(m.Content)
			if err != nil {
				return "", nil, err
			}
			appendMsg("assistant", blocks)

		case provider.RoleTool:
			if m.ToolCallID == "" {
				return "", nil, fmt.Errorf("tool message missing ToolCallID")
			}
			appendMsg("user", []contentBlock{{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   textOf(m.Content),
			}})

		default:
			return "", nil, fmt.Errorf("unsupported role %q", m.Role)
		}
	}
	return strings.Join(system, "\n\n"), out, nil
}

func toContentBlocks(parts []provider.ContentPart) ([]contentBlock, error) {
	var out []contentBlock
	for _, p := range parts {
		switch v := p.(type) {
		case provider.TextPart:
			out = append(out, contentBlock{Type: "text", Text: v.Text})
		case provider.ImagePart:
			if len(v.Data) == 0 || v.MediaType == "" {
				return nil, fmt.Errorf("anthropic image parts require inline media type plus data")
			}
			out = append(out, contentBlock{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: v.MediaType,
					Data:      base64.StdEncoding.EncodeToString(v.Data),
				},
			})
		case provider.ToolCallPart:
			input := v.Args
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			out = append(out, contentBlock{
				Type:  "tool_use",
				ID:    v.ID,
				Name:  v.Name,
				Input: input,
			})
		default:
			return nil, fmt.Errorf("unsupported content part %T", p)
		}
	}
	return out, nil
}

func textOf(parts []provider.ContentPart) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(provider.TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func fromResponse(resp messagesResponse) (provider.Response, error) {
	var parts []provider.ContentPart
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			parts = append(parts, provider.TextPart{Text: b.Text})
		case "tool_use":
			if b.Name == "" {
				return provider.Response{}, fmt.Errorf("tool_use block missing name")
			}
			parts = append(parts, provider.ToolCallPart{
				ID:   b.ID,
				Name: b.Name,
				Args: b.Input,
			})
		default:
			return provider.Response{}, fmt.Errorf("unsupported response block %q", b.Type)
		}
	}

	return provider.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Message: provider.Message{
			Role:    provider.RoleAssistant,
			Content: parts,
		},
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason(resp.StopReason),
	}, nil
}

func finishReason(stopReason string) provider.FinishReason {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return provider.FinishStop
	case "max_tokens":
		return provider.FinishLength
	case "tool_use":
		return provider.FinishToolCalls
	case "":
		return ""
	default:
		return provider.FinishReason(stopReason)
	}
}
