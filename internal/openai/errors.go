package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/provider"
)

func shouldRetryStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusConflict ||
		status == http.StatusTooManyRequests ||
		(status >= 500 && status <= 599)
}

func stringifyCode(code any, fallback string) string {
	if v, ok := code.(string); ok && v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return "unknown"
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

// statusError turns a non-2xx body into a typed error, preferring the
// structured vendor error payload when it parses.
func statusError(resp *http.Response) *provider.Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var er errorResponse
	if json.Unmarshal(b, &er) == nil && er.Error.Message != "" {
		return &provider.Error{
			Provider:  "openai",
			Code:      stringifyCode(er.Error.Code, er.Error.Type),
			Status:    resp.StatusCode,
			Message:   er.Error.Message,
			Retryable: shouldRetryStatus(resp.StatusCode),
		}
	}
	return &provider.Error{
		Provider:  "openai",
		Code:      "http_error",
		Status:    resp.StatusCode,
		Message:   strings.TrimSpace(string(b)),
		Retryable: shouldRetryStatus(resp.StatusCode),
	}
}

func wireErr(code, message string, cause error) *provider.Error {
	return &provider.Error{Provider: "openai", Code: code, Message: message, Retryable: false, Cause: cause}
}

func netErr(err error) *provider.Error {
	code, retryable := classifyNetworkErr(err)
	return &provider.Error{Provider: "openai", Code: code, Message: err.Error(), Retryable: retryable, Cause: err}
}
