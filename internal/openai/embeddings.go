package openai

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/aiwire-dev/aiwire/internal/httpx"
	"github.com/aiwire-dev/aiwire/internal/provider"
	publicopenai "github.com/aiwire-dev/aiwire/openai"
)

type embeddingsRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     *int     `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	User           string   `json:"user,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding json.RawMessage `json:"embedding"`
		Index     int             `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) Embed(ctx context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	cfg, err := configFrom(req.ProviderData)
	if err != nil {
		return provider.EmbeddingResponse{}, wireErr("config_error", err.Error(), err)
	}
	if req.Model == "" {
		return provider.EmbeddingResponse{}, wireErr("invalid_request", "model is required", nil)
	}
	if len(req.Inputs) == 0 {
		return provider.EmbeddingResponse{}, wireErr("invalid_request", "inputs are required", nil)
	}

	opts := embeddingOptionsFrom(req.ProviderOptions)
	if opts.EncodingFormat == "" {
		opts.EncodingFormat = "float"
	}

	body, err := json.Marshal(embeddingsRequest{
		Model:          req.Model,
		Input:          req.Inputs,
		Dimensions:     opts.Dimensions,
		EncodingFormat: opts.EncodingFormat,
		User:           opts.User,
	})
	if err != nil {
		return provider.EmbeddingResponse{}, wireErr("marshal_error", err.Error(), err)
	}

	u, err := endpointURL(cfg, "/embeddings")
	if err != nil {
		return provider.EmbeddingResponse{}, wireErr("url_error", err.Error(), err)
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+cfg.APIKey)
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	for k, v := range req.Headers {
		h.Set(k, v)
	}

	maxRetries := cfg.MaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	resp, err := httpx.DoJSON(ctx, cfg.HTTPClient, http.MethodPost, u, body, h, httpx.RetryPolicy{
		MaxRetries: maxRetries,
		MinBackoff: cfg.MinBackoff,
		MaxBackoff: cfg.MaxBackoff,
	})
	if err != nil {
		return provider.EmbeddingResponse{}, netErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return provider.EmbeddingResponse{}, statusError(resp)
	}

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.EmbeddingResponse{}, &provider.Error{Provider: "openai", Code: "read_error", Message: err.Error(), Retryable: true, Cause: err}
	}
	var out embeddingsResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return provider.EmbeddingResponse{}, wireErr("decode_error", err.Error(), err)
	}
	if len(out.Data) == 0 {
		return provider.EmbeddingResponse{}, wireErr("invalid_response", "response has no embeddings", nil)
	}

	vectors := make([][]float32, 0, len(out.Data))
	for _, d := range out.Data {
		vec, err := parseEmbedding(d.Embedding)
		if err != nil {
			return provider.EmbeddingResponse{}, wireErr("decode_error", err.Error(), err)
		}
		vectors = append(vectors, vec)
	}

	return provider.EmbeddingResponse{
		Vectors: vectors,
		Usage: provider.Usage{
			PromptTokens: out.Usage.PromptTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
		RawResponse: rawBody,
	}, nil
}

func embeddingOptionsFrom(providerOptions any) publicopenai.EmbeddingOptions {
	v, ok := providerOptions.(map[string]any)
	if !ok {
		return publicopenai.EmbeddingOptions{}
	}
	switch o := v["openai"].(type) {
	case publicopenai.EmbeddingOptions:
		return o
	case *publicopenai.EmbeddingOptions:
		if o != nil {
			return *o
		}
	}
	return publicopenai.EmbeddingOptions{}
}

// parseEmbedding accepts both encoding formats: a JSON float array, or a
// base64 string carrying the packed little-endian float32 array.
func parseEmbedding(raw json.RawMessage) ([]float32, error) {
	var floats []float64
	if err := json.Unmarshal(raw, &floats); err == nil {
		vec := make([]float32, len(floats))
		for i, x := range floats {
			vec[i] = float32(x)
		}
		return vec, nil
	}

	var b64 string
	if err := json.Unmarshal(raw, &b64); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, io.ErrUnexpectedEOF
	}
	vec := make([]float32, len(data)/4)
	for i := 0; i < len(vec); i++ {
		u := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		vec[i] = math.Float32frombits(u)
	}
	return vec, nil
}
