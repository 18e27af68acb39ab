package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aiwire-dev/aiwire/internal/provider"
	publicopenai "github.com/aiwire-dev/aiwire/openai"
)

func testClient(srv *httptest.Server) *publicopenai.Client {
	return publicopenai.NewClient(publicopenai.Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: -1,
	})
}

func chatRequest(client *publicopenai.Client) provider.Request {
	return provider.Request{
		Model:        "gpt-test",
		ProviderData: client,
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: []provider.ContentPart{provider.TextPart{Text: "hi"}}},
		},
	}
}

func TestGenerate(t *testing.T) {
	var gotBody chatCompletionRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
		}`)
	}))
	defer srv.Close()

	p := &Provider{}
	resp, err := p.Generate(context.Background(), chatRequest(testClient(srv)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.Model != "gpt-test" || len(gotBody.Messages) != 1 {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Stream {
		t.Error("stream flag set on blocking call")
	}
	if resp.ID != "chatcmpl-1" {
		t.Errorf("id = %q", resp.ID)
	}
	if len(resp.Message.Content) != 1 {
		t.Fatalf("content = %v", resp.Message.Content)
	}
	if tp, ok := resp.Message.Content[0].(provider.TextPart); !ok || tp.Text != "hello" {
		t.Errorf("content = %v", resp.Message.Content)
	}
	if resp.FinishReason != provider.FinishStop {
		t.Errorf("finish = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestGenerateToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "chatcmpl-2",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": null,
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":1}"}}]},
				"finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`)
	}))
	defer srv.Close()

	p := &Provider{}
	resp, err := p.Generate(context.Background(), chatRequest(testClient(srv)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.FinishReason != provider.FinishToolCalls {
		t.Errorf("finish = %q", resp.FinishReason)
	}
	if len(resp.Message.Content) != 1 {
		t.Fatalf("content = %v", resp.Message.Content)
	}
	tc, ok := resp.Message.Content[0].(provider.ToolCallPart)
	if !ok || tc.ID != "call_1" || tc.Name != "lookup" || string(tc.Args) != `{"q":1}` {
		t.Errorf("tool call = %+v", tc)
	}
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "rate limited", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	p := &Provider{}
	_, err := p.Generate(context.Background(), chatRequest(testClient(srv)))
	var pe *provider.Error
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	if pe.Status != 429 || !pe.Retryable {
		t.Errorf("error = %+v, want retryable 429", pe)
	}
	if pe.Code != "rate_limit_exceeded" {
		t.Errorf("code = %q", pe.Code)
	}
}

func TestGenerateRequiresClient(t *testing.T) {
	p := &Provider{}
	_, err := p.Generate(context.Background(), provider.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error without client")
	}
}

func sseBody(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString("data: " + e + "\n\n")
	}
	return b.String()
}

func TestStreamText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set")
		}
		if req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
			t.Error("stream_options.include_usage not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody(
			`{"id":"c1","model":"gpt-test","choices":[{"delta":{"role":"assistant","content":"hel"}}]}`,
			`{"id":"c1","choices":[{"delta":{"content":"lo"}}]}`,
			`{"id":"c1","choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`,
			`[DONE]`,
		))
	}))
	defer srv.Close()

	p := &Provider{}
	st, err := p.Stream(context.Background(), chatRequest(testClient(srv)))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer st.Close()

	var text strings.Builder
	for st.Next() {
		text.WriteString(st.Delta().Text)
	}
	if err := st.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	if text.String() != "hello" {
		t.Errorf("text = %q", text.String())
	}

	final := st.Final()
	if final == nil {
		t.Fatal("no final response")
	}
	if final.ID != "c1" || final.FinishReason != provider.FinishStop {
		t.Errorf("final = %+v", final)
	}
	if final.Usage.TotalTokens != 3 {
		t.Errorf("usage = %+v", final.Usage)
	}
	if tp, ok := final.Message.Content[0].(provider.TextPart); !ok || tp.Text != "hello" {
		t.Errorf("final content = %v", final.Message.Content)
	}
}

func TestStreamToolCallAccumulation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody(
			`{"id":"c2","choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{\"q\":"}}]}}]}`,
			`{"id":"c2","choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"sofia\"}"}}]}}]}`,
			`{"id":"c2","choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
			`[DONE]`,
		))
	}))
	defer srv.Close()

	p := &Provider{}
	st, err := p.Stream(context.Background(), chatRequest(testClient(srv)))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer st.Close()

	var fragments []string
	for st.Next() {
		for _, tc := range st.Delta().ToolCalls {
			fragments = append(fragments, tc.ArgumentsDelta)
		}
	}
	if err := st.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	if strings.Join(fragments, "") != `{"q":"sofia"}` {
		t.Errorf("fragments = %v", fragments)
	}

	final := st.Final()
	if final == nil || final.FinishReason != provider.FinishToolCalls {
		t.Fatalf("final = %+v", final)
	}
	tc, ok := final.Message.Content[0].(provider.ToolCallPart)
	if !ok || tc.ID != "call_1" || tc.Name != "lookup" || string(tc.Args) != `{"q":"sofia"}` {
		t.Errorf("tool call = %+v", tc)
	}
}

func TestStreamVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody(
			`{"error": {"message": "boom", "type": "server_error"}}`,
		))
	}))
	defer srv.Close()

	p := &Provider{}
	st, err := p.Stream(context.Background(), chatRequest(testClient(srv)))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer st.Close()

	for st.Next() {
	}
	var pe *provider.Error
	if !errors.As(st.Err(), &pe) || pe.Message != "boom" {
		t.Errorf("err = %v, want vendor error boom", st.Err())
	}
}
