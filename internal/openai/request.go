package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/provider"
)

func buildRequest(req provider.Request, stream bool) (chatCompletionRequest, error) {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		cm, err := toChatMessage(m)
		if err != nil {
			return chatCompletionRequest{}, err
		}
		msgs = append(msgs, cm)
	}

	var tools []tool
	if len(req.Tools) > 0 {
		tools = make([]tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			if t.Name == "" {
				return chatCompletionRequest{}, fmt.Errorf("tool name is required")
			}
			tools = append(tools, tool{
				Type: "function",
				Function: toolFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			})
		}
	}

	out := chatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Tools:       tools,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        append([]string(nil), req.Stop...),
		Metadata:    req.Metadata,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return out, nil
}

func toChatMessage(m provider.Message) (chatMessage, error) {
	role := string(m.Role)
	if role == "" {
		return chatMessage{}, fmt.Errorf("message role is required")
	}

	content, toolCalls, err := buildContent(m.Content)
	if err != nil {
		return chatMessage{}, err
	}

	cm := chatMessage{
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
	}

	if m.Role == provider.RoleTool {
		if m.ToolCallID == "" {
			return chatMessage{}, fmt.Errorf("tool message missing ToolCallID")
		}
		cm.ToolCallID = m.ToolCallID
	}
	if m.Name != "" && m.Role != provider.RoleTool {
		cm.Name = m.Name
	}
	return cm, nil
}

// buildContent returns a plain string for text-only messages and a typed part
// array once images are involved.
func buildContent(parts []provider.ContentPart) (any, []toolCall, error) {
	var out []contentPart
	var toolCalls []toolCall
	textOnly := true

	for _, p := range parts {
		switch v := p.(type) {
		case provider.TextPart:
			out = append(out, contentPart{Type: "text", Text: v.Text})
		case provider.ImagePart:
			u := v.URL
			if u == "" {
				if len(v.Data) == 0 || v.MediaType == "" {
					return nil, nil, fmt.Errorf("image part needs a URL or media type plus data")
				}
				u = "data:" + v.MediaType + ";base64," + base64.StdEncoding.EncodeToString(v.Data)
			}
			out = append(out, contentPart{Type: "image_url", ImageURL: &imageURL{URL: u}})
			textOnly = false
		case provider.ToolCallPart:
			toolCalls = append(toolCalls, toolCall{
				ID:   v.ID,
				Type: "function",
				Function: toolCallFn{
					Name:      v.Name,
					Arguments: string(v.Args),
				},
			})
		default:
			return nil, nil, fmt.Errorf("unsupported content part %T", p)
		}
	}

	if !textOnly {
		return out, toolCalls, nil
	}

	var b strings.Builder
	for _, p := range out {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 && len(toolCalls) > 0 {
		return nil, toolCalls, nil
	}
	return b.String(), toolCalls, nil
}

func fromResponseMessage(m responseMessage) (provider.Message, error) {
	if m.Role == "" {
		return provider.Message{}, fmt.Errorf("missing role")
	}
	var parts []provider.ContentPart
	if m.Content != nil && *m.Content != "" {
		parts = append(parts, provider.TextPart{Text: *m.Content})
	}
	for _, tc := range m.ToolCalls {
		if tc.Function.Name == "" {
			return provider.Message{}, fmt.Errorf("tool call missing name")
		}
		parts = append(parts, provider.ToolCallPart{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}
	return provider.Message{
		Role:    provider.Role(m.Role),
		Content: parts,
	}, nil
}
