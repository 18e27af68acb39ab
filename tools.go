package aiwire

import (
	"context"
	"fmt"

	"github.com/aiwire-dev/aiwire/internal/schema"
)

// NoSuchToolError reports a model tool call naming a tool that was not in
// the request.
type NoSuchToolError struct {
	ToolName string
}

func (e *NoSuchToolError) Error() string {
	return fmt.Sprintf("model requested unknown tool %q", e.ToolName)
}

// InvalidToolInputError reports tool-call arguments that failed the tool's
// input schema.
type InvalidToolInputError struct {
	ToolName   string
	ToolCallID string
	Cause      error
}

func (e *InvalidToolInputError) Error() string {
	return fmt.Sprintf("invalid input for tool %q (call %s): %v", e.ToolName, e.ToolCallID, e.Cause)
}

func (e *InvalidToolInputError) Unwrap() error { return e.Cause }

// ToolExecutionError wraps a failure from a tool handler.
type ToolExecutionError struct {
	ToolName   string
	ToolCallID string
	Cause      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q (call %s) failed: %v", e.ToolName, e.ToolCallID, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func runTools(ctx context.Context, tools []Tool, calls []ToolCallPart) ([]Message, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	if len(tools) == 0 {
		return nil, fmt.Errorf("model requested tool calls but no tools were provided")
	}

	results := make([]Message, 0, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			return nil, fmt.Errorf("tool call missing id")
		}
		t, ok := findTool(tools, call.Name)
		if !ok {
			return nil, &NoSuchToolError{ToolName: call.Name}
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %q missing handler", call.Name)
		}

		if len(t.InputSchema.JSON) > 0 {
			if err := schema.Validate(t.InputSchema.JSON, call.Args); err != nil {
				return nil, &InvalidToolInputError{ToolName: t.Name, ToolCallID: call.ID, Cause: err}
			}
		}

		val, err := t.Handler(ctx, call.Args)
		if err != nil {
			return nil, &ToolExecutionError{ToolName: t.Name, ToolCallID: call.ID, Cause: err}
		}
		results = append(results, ToolResultForCall(call.ID, t.Name, val))
	}
	return results, nil
}
