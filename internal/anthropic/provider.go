package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/httpx"
	"github.com/aiwire-dev/aiwire/internal/provider"
	publicanthropic "github.com/aiwire-dev/aiwire/anthropic"
)

type Provider struct{}

var _ provider.Provider = (*Provider)(nil)

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

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return provider.Response{}, wireErr("decode_error", err.Error(), err)
	}

	pr, err := fromResponse(out)
	if err != nil {
		return provider.Response{}, wireErr("invalid_response", err.Error(), err)
	}
	return pr, nil
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

func (p *Provider) post(ctx context.Context, cfg publicanthropic.Config, req provider.Request, stream bool) (*http.Response, error) {
	payload, err := buildRequest(req, stream)
	if err != nil {
		return nil, wireErr("request_error", err.Error(), err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wireErr("marshal_error", err.Error(), err)
	}

	u, err := messagesURL(cfg)
	if err != nil {
		return nil, wireErr("url_error", err.Error(), err)
	}

	h := make(http.Header)
	h.Set("x-api-key", cfg.APIKey)
	h.Set("anthropic-version", cfg.Version)
	if cfg.BetaFeatures != "" {
		h.Set("anthropic-beta", cfg.BetaFeatures)
	}
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

func configFrom(providerData any) (publicanthropic.Config, error) {
	c, ok := providerData.(*publicanthropic.Client)
	if !ok || c == nil {
		return publicanthropic.Config{}, fmt.Errorf("anthropic provider requires a client-bound model ref")
	}
	cfg := c.Config()
	if cfg.APIKey == "" {
		return publicanthropic.Config{}, fmt.Errorf("anthropic API key is required")
	}
	return cfg, nil
}

func messagesURL(cfg publicanthropic.Config) (string, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages")
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func statusError(resp *http.Response) *provider.Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var er errorResponse
	if json.Unmarshal(b, &er) == nil && er.Error != nil && er.Error.Message != "" {
		return &provider.Error{
			Provider:  "anthropic",
			Code:      er.Error.Type,
			Status:    resp.StatusCode,
			Message:   er.Error.Message,
			Retryable: shouldRetryStatus(resp.StatusCode),
		}
	}
	return &provider.Error{
		Provider:  "anthropic",
		Code:      "http_error",
		Status:    resp.StatusCode,
		Message:   strings.TrimSpace(string(b)),
		Retryable: shouldRetryStatus(resp.StatusCode),
	}
}

func shouldRetryStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusConflict ||
		status == http.StatusTooManyRequests ||
		(status >= 500 && status <= 599)
}

func classifyNetworkErr(err error) (code string, retryable bool) {
	if err == nil {
		return "network_error", false
	}
	if errors.Is(err, context.Canceled) {
		return "canceled", false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout", true
	}
	return "network_error", true
}

func wireErr(code, message string, cause error) *provider.Error {
	return &provider.Error{Provider: "anthropic", Code: code, Message: message, Retryable: false, Cause: cause}
}

func netErr(err error) *provider.Error {
	code, retryable := classifyNetworkErr(err)
	return &provider.Error{Provider: "anthropic", Code: code, Message: err.Error(), Retryable: retryable, Cause: err}
}
