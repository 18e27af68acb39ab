package aiwire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aiwire-dev/aiwire/anthropic"
	"github.com/aiwire-dev/aiwire/internal/provider"
	"github.com/aiwire-dev/aiwire/openai"
)

func toProviderRequest(req BaseRequest) (provider.Request, error) {
	if req.Model == nil {
		return provider.Request{}, fmt.Errorf("model is required")
	}
	if req.Model.Name() == "" {
		return provider.Request{}, fmt.Errorf("model name is required")
	}

	msgs, err := toProviderMessages(req.Messages)
	if err != nil {
		return provider.Request{}, err
	}

	tools, err := toProviderTools(req.Tools)
	if err != nil {
		return provider.Request{}, err
	}

	return provider.Request{
		Model:        req.Model.Name(),
		Messages:     msgs,
		Tools:        tools,
		ProviderData: clientFromModel(req.Model),
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		TopK:         req.TopK,
		Stop:         append([]string(nil), req.Stop...),
		Headers:      cloneStringMap(req.Headers),
		Metadata:     cloneStringMap(req.Metadata),
	}, nil
}

type openAIClientModel interface {
	Client() *openai.Client
}

type anthropicClientModel interface {
	Client() *anthropic.Client
}

// clientFromModel surfaces the vendor client handle bound to the model ref,
// passed through to the provider as opaque ProviderData.
func clientFromModel(m ModelRef) any {
	switch v := m.(type) {
	case openAIClientModel:
		if c := v.Client(); c != nil {
			return c
		}
	case anthropicClientModel:
		if c := v.Client(); c != nil {
			return c
		}
	}
	return nil
}

func toProviderTools(tools []Tool) ([]provider.ToolDefinition, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]provider.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		out = append(out, provider.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema.JSON,
		})
	}
	return out, nil
}

func toProviderMessages(msgs []Message) ([]provider.Message, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	out := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		pm, err := toProviderMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

func toProviderMessage(m Message) (provider.Message, error) {
	if m.Role == "" {
		return provider.Message{}, fmt.Errorf("message role is required")
	}
	parts := make([]provider.ContentPart, 0, len(m.Content))
	for _, p := range m.Content {
		switch v := p.(type) {
		case TextPart:
			parts = append(parts, provider.TextPart{Text: v.Text})
		case ImagePart:
			parts = append(parts, provider.ImagePart{URL: v.URL, MediaType: v.MediaType, Data: v.Data})
		case ToolCallPart:
			parts = append(parts, provider.ToolCallPart{ID: v.ID, Name: v.Name, Args: v.Args})
		default:
			return provider.Message{}, fmt.Errorf("unsupported content part %T", p)
		}
	}
	return provider.Message{
		Role:       provider.Role(m.Role),
		Content:    parts,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}, nil
}

func fromProviderResponse(resp provider.Response) (Message, Usage, FinishReason, error) {
	msg, err := fromProviderMessage(resp.Message)
	if err != nil {
		return Message{}, Usage{}, "", err
	}
	return msg, Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, FinishReason(resp.FinishReason), nil
}

func fromProviderMessage(m provider.Message) (Message, error) {
	parts := make([]ContentPart, 0, len(m.Content))
	for _, p := range m.Content {
		switch v := p.(type) {
		case provider.TextPart:
			parts = append(parts, TextPart{Text: v.Text})
		case provider.ImagePart:
			parts = append(parts, ImagePart{URL: v.URL, MediaType: v.MediaType, Data: v.Data})
		case provider.ToolCallPart:
			parts = append(parts, ToolCallPart{ID: v.ID, Name: v.Name, Args: json.RawMessage(v.Args)})
		default:
			return Message{}, fmt.Errorf("unknown provider content part type %T", p)
		}
	}
	return Message{
		Role:       Role(m.Role),
		Content:    parts,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}, nil
}

func extractTextFromMessage(m Message) string {
	var b []byte
	for _, p := range m.Content {
		if t, ok := p.(TextPart); ok {
			b = append(b, t.Text...)
		}
	}
	return string(b)
}

func extractToolCalls(m Message) []ToolCallPart {
	var out []ToolCallPart
	for _, p := range m.Content {
		if tc, ok := p.(ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		return &Error{
			Provider:  pe.Provider,
			Code:      pe.Code,
			Status:    pe.Status,
			Message:   pe.Message,
			Retryable: pe.Retryable,
			Cause:     pe.Cause,
		}
	}
	return err
}
