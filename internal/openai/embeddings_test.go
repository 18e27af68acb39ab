package openai

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiwire-dev/aiwire/internal/provider"
	publicopenai "github.com/aiwire-dev/aiwire/openai"
)

func embedRequest(client *publicopenai.Client, inputs ...string) provider.EmbeddingRequest {
	return provider.EmbeddingRequest{
		Model:        "embed-test",
		Inputs:       inputs,
		ProviderData: client,
	}
}

func TestEmbedFloatFormat(t *testing.T) {
	var gotBody embeddingsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, `{
			"data": [
				{"embedding": [0.25, -0.5], "index": 0},
				{"embedding": [1.0, 2.0], "index": 1}
			],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`)
	}))
	defer srv.Close()

	p := &Provider{}
	resp, err := p.Embed(context.Background(), embedRequest(testClient(srv), "a", "b"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotBody.Model != "embed-test" || len(gotBody.Input) != 2 {
		t.Errorf("request = %+v", gotBody)
	}
	if gotBody.EncodingFormat != "float" {
		t.Errorf("encoding_format = %q, want float default", gotBody.EncodingFormat)
	}
	if len(resp.Vectors) != 2 {
		t.Fatalf("vectors = %d", len(resp.Vectors))
	}
	if resp.Vectors[0][0] != 0.25 || resp.Vectors[0][1] != -0.5 {
		t.Errorf("vector 0 = %v", resp.Vectors[0])
	}
	if resp.Usage.PromptTokens != 4 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if len(resp.RawResponse) == 0 {
		t.Error("RawResponse not captured")
	}
}

func base64Embedding(vals ...float32) string {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func TestEmbedBase64Format(t *testing.T) {
	encoded := base64Embedding(0.5, -1.25, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.EncodingFormat != "base64" {
			t.Errorf("encoding_format = %q", req.EncodingFormat)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"embedding": encoded, "index": 0}},
			"usage": map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	req := embedRequest(testClient(srv), "x")
	req.ProviderOptions = map[string]any{
		"openai": publicopenai.EmbeddingOptions{EncodingFormat: "base64"},
	}

	p := &Provider{}
	resp, err := p.Embed(context.Background(), req)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.5, -1.25, 3}
	if len(resp.Vectors) != 1 || len(resp.Vectors[0]) != 3 {
		t.Fatalf("vectors = %v", resp.Vectors)
	}
	for i, v := range resp.Vectors[0] {
		if v != want[i] {
			t.Errorf("vector[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestParseEmbeddingBadBase64Length(t *testing.T) {
	// 3 bytes cannot hold float32s.
	raw, _ := json.Marshal(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	if _, err := parseEmbedding(raw); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestEmbedDimensionsOption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Dimensions == nil || *req.Dimensions != 256 {
			t.Errorf("dimensions = %v, want 256", req.Dimensions)
		}
		io.WriteString(w, `{"data":[{"embedding":[0.1],"index":0}],"usage":{"prompt_tokens":1,"total_tokens":1}}`)
	}))
	defer srv.Close()

	dims := 256
	req := embedRequest(testClient(srv), "x")
	req.ProviderOptions = map[string]any{
		"openai": &publicopenai.EmbeddingOptions{Dimensions: &dims},
	}

	p := &Provider{}
	if _, err := (p).Embed(context.Background(), req); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestEmbedStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	p := &Provider{}
	_, err := p.Embed(context.Background(), embedRequest(testClient(srv), "x"))
	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Status != 401 {
		t.Fatalf("err = %v, want 401 provider error", err)
	}
	if pe.Code != "invalid_api_key" {
		t.Errorf("code = %q", pe.Code)
	}
}
