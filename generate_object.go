package aiwire

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/schema"
)

type GenerateObjectRequest[T any] struct {
	BaseRequest

	Schema Schema

	// Strict controls whether validation failures after the retry budget are
	// returned as errors (true, the default) or surfaced via ValidationError
	// alongside the raw JSON.
	Strict *bool

	// MaxRetries bounds correction rounds after an invalid response.
	MaxRetries *int
}

type GenerateObjectResponse[T any] struct {
	Object  T
	RawJSON json.RawMessage

	Message      Message
	Usage        Usage
	FinishReason FinishReason

	ValidationError error
}

// GenerateObject asks the model for a JSON object matching req.Schema,
// validates the reply and re-prompts with the validation error until it
// parses or the retry budget runs out.
func GenerateObject[T any](ctx context.Context, req GenerateObjectRequest[T]) (*GenerateObjectResponse[T], error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	p, err := providerForModel(req.Model)
	if err != nil {
		return nil, err
	}
	if len(req.Schema.JSON) == 0 {
		return nil, fmt.Errorf("schema is required")
	}

	strict := true
	if req.Strict != nil {
		strict = *req.Strict
	}
	maxRetries := 1
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	base := req.BaseRequest
	base.Tools = nil
	messages := append([]Message{objectSystemPrompt(req.Schema)}, req.Messages...)

	var lastMsg Message
	var aggUsage Usage
	var lastFinish FinishReason

	for attempt := 0; ; attempt++ {
		base.Messages = messages
		preq, err := toProviderRequest(base)
		if err != nil {
			return nil, err
		}

		resp, err := p.Generate(ctx, preq)
		if err != nil {
			return nil, mapProviderError(err)
		}

		msg, usage, finish, err := fromProviderResponse(resp)
		if err != nil {
			return nil, err
		}
		aggUsage = addUsage(aggUsage, usage)
		lastMsg, lastFinish = msg, finish

		raw := json.RawMessage(stripCodeFence(extractTextFromMessage(msg)))

		obj, vErr := decodeAndValidate[T](req.Schema, raw)
		if vErr == nil {
			return &GenerateObjectResponse[T]{
				Object:       obj,
				RawJSON:      raw,
				Message:      lastMsg,
				Usage:        aggUsage,
				FinishReason: lastFinish,
			}, nil
		}

		if !strict {
			return &GenerateObjectResponse[T]{
				RawJSON:         raw,
				Message:         lastMsg,
				Usage:           aggUsage,
				FinishReason:    lastFinish,
				ValidationError: vErr,
			}, nil
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("GenerateObject: invalid json: %w", vErr)
		}

		messages = append(messages, msg, System(correctionPrompt(vErr, raw)))
	}
}

func decodeAndValidate[T any](s Schema, raw json.RawMessage) (T, error) {
	var zero T
	if len(raw) == 0 {
		return zero, fmt.Errorf("empty json")
	}
	if err := schema.Validate(s.JSON, raw); err != nil {
		return zero, err
	}
	var obj T
	if err := json.Unmarshal(raw, &obj); err != nil {
		return zero, err
	}
	return obj, nil
}

func objectSystemPrompt(s Schema) Message {
	return System("Return ONLY valid JSON matching this JSON schema. No backticks, no markdown, no extra text.\nSchema:\n" + string(s.JSON))
}

func correctionPrompt(err error, raw json.RawMessage) string {
	const max = 4000
	s := string(raw)
	if len(s) > max {
		s = s[:max]
	}
	return fmt.Sprintf("The previous JSON was invalid or did not match the schema.\nError:\n%s\nPrevious JSON:\n%s\nReturn ONLY corrected JSON (no extra text).", err.Error(), s)
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence despite
// instructions.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		// drop an optional language tag on the opening fence line
		first := strings.TrimSpace(t[:i])
		if first == "" || first == "json" {
			t = t[i+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
