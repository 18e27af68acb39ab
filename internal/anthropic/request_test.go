package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/aiwire-dev/aiwire/internal/provider"
)

func TestSplitMessagesSystemAndToolResults(t *testing.T) {
	system, msgs, err := splitMessages([]provider.Message{
		{Role: provider.RoleSystem, Content: []provider.ContentPart{provider.TextPart{Text: "be brief"}}},
		{Role: provider.RoleSystem, Content: []provider.ContentPart{provider.TextPart{Text: "answer in bulgarian"}}},
		{Role: provider.RoleUser, Content: []provider.ContentPart{provider.TextPart{Text: "weather in sofia?"}}},
		{Role: provider.RoleAssistant, Content: []provider.ContentPart{
			provider.ToolCallPart{ID: "toolu_1", Name: "weather", Args: json.RawMessage(`{"city":"sofia"}`)},
		}},
		{Role: provider.RoleTool, ToolCallID: "toolu_1", Content: []provider.ContentPart{provider.TextPart{Text: "sunny"}}},
	})
	if err != nil {
		t.Fatalf("splitMessages: %v", err)
	}
	if system != "be brief\n\nanswer in bulgarian" {
		t.Errorf("system = %q", system)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" || msgs[2].Role != "user" {
		t.Errorf("roles = %s %s %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	tr := msgs[2].Content[0]
	if tr.Type != "tool_result" || tr.ToolUseID != "toolu_1" || tr.Content != "sunny" {
		t.Errorf("tool result = %+v", tr)
	}
}

func TestSplitMessagesMergesConsecutiveUserTurns(t *testing.T) {
	_, msgs, err := splitMessages([]provider.Message{
		{Role: provider.RoleUser, Content: []provider.ContentPart{provider.TextPart{Text: "first"}}},
		{Role: provider.RoleTool, ToolCallID: "toolu_1", Content: []provider.ContentPart{provider.TextPart{Text: "result"}}},
		{Role: provider.RoleUser, Content: []provider.ContentPart{provider.TextPart{Text: "second"}}},
	})
	if err != nil {
		t.Fatalf("splitMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %+v, want one merged user turn", msgs)
	}
	if len(msgs[0].Content) != 3 {
		t.Errorf("blocks = %+v", msgs[0].Content)
	}
}

func TestSplitMessagesToolResultRequiresCallID(t *testing.T) {
	_, _, err := splitMessages([]provider.Message{
		{Role: provider.RoleTool, Content: []provider.ContentPart{provider.TextPart{Text: "x"}}},
	})
	if err == nil {
		t.Fatal("expected error for tool message without ToolCallID")
	}
}

func TestBuildRequestDefaults(t *testing.T) {
	req, err := buildRequest(provider.Request{
		Model: "claude-test",
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: []provider.ContentPart{provider.TextPart{Text: "hi"}}},
		},
		Stop:     []string{"END"},
		Metadata: map[string]string{"user_id": "u-1"},
	}, true)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d", req.MaxTokens)
	}
	if !req.Stream {
		t.Error("stream flag not set")
	}
	if len(req.StopSequences) != 1 || req.StopSequences[0] != "END" {
		t.Errorf("stop_sequences = %v", req.StopSequences)
	}
	if req.Metadata == nil || req.Metadata.UserID != "u-1" {
		t.Errorf("metadata = %+v", req.Metadata)
	}
}

func TestBuildRequestRejectsSystemOnly(t *testing.T) {
	_, err := buildRequest(provider.Request{
		Model: "claude-test",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: []provider.ContentPart{provider.TextPart{Text: "hello"}}},
		},
	}, false)
	if err == nil {
		t.Fatal("expected error for system-only conversation")
	}
}

func TestToContentBlocksEmptyToolArgs(t *testing.T) {
	blocks, err := toContentBlocks([]provider.ContentPart{
		provider.ToolCallPart{ID: "toolu_1", Name: "now"},
	})
	if err != nil {
		t.Fatalf("toContentBlocks: %v", err)
	}
	if string(blocks[0].Input) != `{}` {
		t.Errorf("input = %s, want empty object fallback", blocks[0].Input)
	}
}
