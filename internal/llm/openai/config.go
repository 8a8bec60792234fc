package openai

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

// TokenPolicy decides what happens when no API key is configured.
type TokenPolicy int

const (
	// TokenOptional sends PlaceholderToken; local servers usually ignore the header.
	TokenOptional TokenPolicy = iota
	// TokenRequired rejects the call with InvalidInput before anything is sent.
	TokenRequired
)

func (p TokenPolicy) String() string {
	if p == TokenRequired {
		return "required"
	}
	return "optional"
}

const (
	DefaultBaseURL          = "http://localhost:23333/v1"
	DefaultModel            = "paddleocr-vl"
	DefaultPlaceholderToken = "sk-dummy-token"
)

// Config for the vision client.
type Config struct {
	BaseURL          string // default http://localhost:23333/v1; /chat/completions is appended
	Model            string // e.g. "paddleocr-vl", "deepseek-ocr"
	APIKey           string // if empty, falls back to env IDCARD_API_TOKEN then DEEPSEEK_API_TOKEN
	TokenPolicy      TokenPolicy
	PlaceholderToken string
	Sampling         llm.SamplingPolicy // zero fields take llm.DefaultSamplingPolicy() values
	Timeout          time.Duration      // http client timeout
}

// Client is an OpenAI-compatible vision extraction client. It is safe for concurrent use.
type Client struct {
	cfg       Config
	transport llm.Transport
	log       *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(t llm.Transport) Option {
	return func(c *Client) { c.transport = t }
}

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = firstEnv("IDCARD_API_TOKEN", "DEEPSEEK_API_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.PlaceholderToken == "" {
		cfg.PlaceholderToken = DefaultPlaceholderToken
	}
	cfg.Sampling = cfg.Sampling.WithDefaults()
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{cfg: cfg, log: logger}
	for _, o := range opts {
		o(c)
	}
	if c.transport == nil {
		c.transport = llm.NewHTTPTransport(c.Endpoint(), c.token(), cfg.Timeout, logger)
	}
	return c
}

// Config returns the effective configuration with defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// Endpoint is the full chat/completions URL.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
}

func (c *Client) token() string {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey
	}
	if c.cfg.TokenPolicy == TokenRequired {
		return ""
	}
	return c.cfg.PlaceholderToken
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// FromAppConfig maps the application configuration onto a client Config.
func FromAppConfig(c *common.Config) Config {
	policy := TokenOptional
	if c.Endpoint.TokenRequired {
		policy = TokenRequired
	}
	return Config{
		BaseURL:     c.Endpoint.BaseURL,
		Model:       c.Endpoint.Model,
		APIKey:      c.Endpoint.APIToken,
		TokenPolicy: policy,
		Sampling: llm.SamplingPolicy{
			Temperature:      c.Sampling.Temperature,
			TopP:             c.Sampling.TopP,
			FrequencyPenalty: c.Sampling.FrequencyPenalty,
			MaxTokens:        c.Sampling.MaxTokens,
		},
		Timeout: c.Endpoint.Timeout,
	}
}
