package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/httpx"
	"github.com/aiwire-dev/aiwire/internal/provider"
	publicopenai "github.com/aiwire-dev/aiwire/openai"
)

type Provider struct{}

var (
	_ provider.Provider          = (*Provider)(nil)
	_ provider.EmbeddingProvider = (*Provider)(nil)
)

func (p *Provider) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	cfg, err := configFrom(req.ProviderData)
	if err != nil {
		return provider.Response{}, wireErr("config_error", err.Error(), err)
	}

	resp, err := p.post(ctx, cfg, req, false)
	if err != nil {
		return provider.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return provider.Response{}, statusError(resp)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return provider.Response{}, wireErr("decode_error", err.Error(), err)
	}
	if len(out.Choices) == 0 {
		return provider.Response{}, wireErr("invalid_response", "response has no choices", nil)
	}
	c := out.Choices[0]

	msg, err := fromResponseMessage(c.Message)
	if err != nil {
		return provider.Response{}, wireErr("invalid_response", err.Error(), err)
	}

	return provider.Response{
		ID:      out.ID,
		Model:   out.Model,
		Message: msg,
		Usage: provider.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
		FinishReason: provider.FinishReason(c.FinishReason),
	}, nil
}

func (p *Provider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	cfg, err := configFrom(req.ProviderData)
	if err != nil {
		return nil, wireErr("config_error", err.Error(), err)
	}

	resp, err := p.post(ctx, cfg, req, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return newStream(resp), nil
}

func (p *Provider) post(ctx context.Context, cfg publicopenai.Config, req provider.Request, stream bool) (*http.Response, error) {
	payload, err := buildRequest(req, stream)
	if err != nil {
		return nil, wireErr("request_error", err.Error(), err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wireErr("marshal_error", err.Error(), err)
	}

	u, err := endpointURL(cfg, "/chat/completions")
	if err != nil {
		return nil, wireErr("url_error", err.Error(), err)
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+cfg.APIKey)
	if stream {
		h.Set("Accept", "text/event-stream")
	}
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	for k, v := range req.Headers {
		h.Set(k, v)
	}

	resp, err := httpx.DoJSON(ctx, cfg.HTTPClient, http.MethodPost, u, body, h, httpx.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		MinBackoff: cfg.MinBackoff,
		MaxBackoff: cfg.MaxBackoff,
	})
	if err != nil {
		return nil, netErr(err)
	}
	return resp, nil
}

func configFrom(providerData any) (publicopenai.Config, error) {
	c, ok := providerData.(*publicopenai.Client)
	if !ok || c == nil {
		return publicopenai.Config{}, fmt.Errorf("openai provider requires a client-bound model ref")
	}
	cfg := c.Config()
	if cfg.APIKey == "" {
		return publicopenai.Config{}, fmt.Errorf("openai API key is required")
	}
	return cfg, nil
}

func endpointURL(cfg publicopenai.Config, path string) (string, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	prefix := strings.TrimRight(cfg.APIPrefix, "/")
	u, err := url.Parse(base + prefix + path)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
