// Package anthropic holds the client configuration and model references for
// the Anthropic messages API binding.
package anthropic

import (
	"net/http"
	"sync/atomic"
	"time"
)

const ProviderName = "anthropic"

const (
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultVersion is the anthropic-version header value the binding
	// speaks. Wire shapes in internal/anthropic track this version.
	DefaultVersion = "2023-06-01"
)

type Config struct {
	APIKey  string
	BaseURL string

	// Version is sent as the anthropic-version header.
	Version string

	// BetaFeatures, when set, is sent as the anthropic-beta header.
	BetaFeatures string

	Headers    map[string]string
	HTTPClient *http.Client

	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: normalizeConfig(cfg)}
}

var defaultClient atomic.Pointer[Client]

func init() {
	defaultClient.Store(NewClient(Config{}))
}

// Configure replaces the package-level default client.
func Configure(cfg Config) {
	defaultClient.Store(NewClient(cfg))
}

func Chat(modelName string) ModelRef {
	return defaultClient.Load().Chat(modelName)
}

func (c *Client) Chat(modelName string) ModelRef {
	return ModelRef{
		modelName: modelName,
		client:    c,
	}
}

type ModelRef struct {
	modelName string
	client    *Client
}

func (m ModelRef) Provider() string { return ProviderName }
func (m ModelRef) Name() string     { return m.modelName }

func (m ModelRef) Client() *Client { return m.client }

func (c *Client) Config() Config { return c.cfg }

func normalizeConfig(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = 250 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return cfg
}
