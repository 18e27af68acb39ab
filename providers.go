package aiwire

import (
	internalanthropic "github.com/aiwire-dev/aiwire/internal/anthropic"
	internalopenai "github.com/aiwire-dev/aiwire/internal/openai"
	"github.com/aiwire-dev/aiwire/internal/provider"
)

func init() {
	// Registration only fails on duplicate names, which cannot happen here.
	_ = provider.Register("openai", &internalopenai.Provider{})
	_ = provider.Register("anthropic", &internalanthropic.Provider{})
}

func providerForModel(m ModelRef) (provider.Provider, error) {
	if m == nil {
		return nil, &Error{Code: "invalid_request", Message: "model is required"}
	}
	name := m.Provider()
	if name == "" {
		return nil, &Error{Code: "invalid_request", Message: "model provider is required"}
	}
	p, ok := provider.Get(name)
	if !ok {
		return nil, &Error{Code: "invalid_request", Message: "unknown provider " + name}
	}
	return p, nil
}
