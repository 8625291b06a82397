// Package llm is the generation backend boundary: role-tagged messages in,
// generated text out. It performs no retries; callers decide retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/config"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrGenerationFailed wraps every transport, auth or empty-response failure.
var ErrGenerationFailed = errors.New("generation failed")

// Role tags a message for the backend.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged chat message. Order within a call matters.
type Message struct {
	Role    Role
	Content string
}

// Generator produces text from an ordered message list.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Config configures the OpenAI-compatible client.
type Config struct {
	Model       string
	BaseURL     string
	APIKey      config.Secret
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   float64
	Burst       int
}

// FromAppConfig maps the llm section of the application config.
func FromAppConfig(c config.LLMConfig) Config {
	return Config{
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout.Duration(),
		RateLimit:   c.RateLimit,
		Burst:       c.Burst,
	}
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *logging.Logger
	model      llms.Model
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithModel replaces the langchaingo model, bypassing the OpenAI constructor.
func WithModel(m llms.Model) Option {
	return func(o *options) { o.model = m }
}

// Client is a Generator backed by a langchaingo chat model.
// It is safe for concurrent use.
type Client struct {
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// NewClient creates a Client for an OpenAI-compatible chat completions API.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	model := o.model
	if model == nil {
		if !cfg.APIKey.IsSet() {
			return nil, fmt.Errorf("llm api key required (set AUTODEV_LLM_API_KEY or OPENAI_API_KEY)")
		}
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Timeout}
		}
		oaOpts := []openai.Option{
			openai.WithToken(cfg.APIKey.Value()),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.BaseURL != "" {
			oaOpts = append(oaOpts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err := openai.New(oaOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		model = m
	}

	return &Client{
		model:       model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:      o.logger.Named("llm"),
	}, nil
}

// Generate sends messages to the backend and returns the first choice's text.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrGenerationFailed)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %w", ErrGenerationFailed, err)
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatType(m.Role), m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.maxTokens))
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.Warn(ctx, "generation request failed",
			zap.String("model", c.modelName),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	text := resp.Choices[0].Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	c.logger.Debug(ctx, "generation completed",
		zap.String("model", c.modelName),
		zap.Int("messages", len(messages)),
		zap.Duration("duration", time.Since(start)),
	)
	c.logger.Trace(ctx, "generation output", zap.String("text", text))
	return text, nil
}

func chatType(r Role) schema.ChatMessageType {
	switch r {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	default:
		return schema.ChatMessageTypeHuman
	}
}
