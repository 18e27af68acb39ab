package aiwire

import (
	"context"
	"fmt"
)

// GenerateText performs a blocking chat completion against the model's
// provider. When the model answers with tool calls and the matching tools
// carry handlers, the loop executes them, appends the results and re-issues
// the request until the model produces a final answer or the iteration
// budget is exhausted.
func GenerateText(ctx context.Context, req GenerateTextRequest) (*GenerateTextResponse, error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	p, err := providerForModel(req.Model)
	if err != nil {
		return nil, err
	}

	maxIter := 5
	if req.ToolLoop != nil && req.ToolLoop.MaxIterations > 0 {
		maxIter = req.ToolLoop.MaxIterations
	}

	base := req.BaseRequest
	messages := append([]Message(nil), base.Messages...)

	var aggUsage Usage
	for iter := 0; ; iter++ {
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
		messages = append(messages, msg)

		toolCalls := extractToolCalls(msg)
		if len(toolCalls) == 0 {
			return &GenerateTextResponse{
				Text:         extractTextFromMessage(msg),
				Message:      msg,
				Usage:        aggUsage,
				FinishReason: finish,
			}, nil
		}

		if iter+1 >= maxIter {
			return nil, fmt.Errorf("tool loop exceeded max iterations (%d)", maxIter)
		}

		results, err := runTools(ctx, base.Tools, toolCalls)
		if err != nil {
			return nil, err
		}
		messages = append(messages, results...)
	}
}

// StreamText opens a streaming chat completion. The returned stream yields
// text deltas as they arrive; tool-call rounds are executed between provider
// streams without surfacing intermediate deltas for the tool results.
func StreamText(ctx context.Context, req StreamTextRequest) (*TextStream, error) {
	// The stream outlives this call, so the deadline is released on Close
	// rather than on return.
	ctx, cancel := applyTimeout(ctx, req.Timeout)

	p, err := providerForModel(req.Model)
	if err != nil {
		cancel()
		return nil, err
	}

	st := newStreamText(ctx, cancel, p, req)
	return st, nil
}
