package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = openai.GPT3Dot5Turbo
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTimeout     = 30 * time.Second
)

// Config is built once at startup and never changed afterwards.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration

	// HTTPClient overrides the transport; nil uses the library default.
	HTTPClient openai.HTTPDoer
}

type OpenAIClient struct {
	client *openai.Client // nil when unconfigured
	cfg    Config
	log    zerolog.Logger
}

func NewOpenAIClient(cfg Config, log zerolog.Logger) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &OpenAIClient{cfg: cfg, log: log.With().Str("component", "ai").Logger()}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		c.log.Error().Msg("OPENAI_API_KEY not set, assistant runs in maintenance mode")
		return c
	}

	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	c.client = openai.NewClientWithConfig(oc)

	c.log.Info().Str("model", cfg.Model).Int("key_len", len(apiKey)).Msg("openai client ready")
	return c
}

func (c *OpenAIClient) Configured() bool { return c.client != nil }

func (c *OpenAIClient) Model() string { return c.cfg.Model }

func (c *OpenAIClient) Complete(ctx context.Context, msgs []Message) Outcome {
	if c.client == nil {
		return Failure(KindUnconfigured)
	}

	req := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		req = append(req, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}

	text, err := c.create(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    req,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		kind, pe := Classify(err)
		c.log.Error().
			Str("kind", string(kind)).
			Str("code", pe.Code).
			Str("type", pe.Type).
			Int("status", pe.Status).
			Str("provider_message", pe.Message).
			Msg("completion failed")
		return Failure(kind)
	}

	c.log.Debug().Str("preview", short(text)).Msg("completion ok")
	return Success(text)
}

// Ping sends a tiny prompt to verify the credential and connectivity.
func (c *OpenAIClient) Ping(ctx context.Context) (string, FailureKind) {
	if c.client == nil {
		return "", KindUnconfigured
	}

	text, err := c.create(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: RoleUser, Content: "Say 'Test successful' if you can read this."},
		},
		MaxTokens: 10,
	})
	if err != nil {
		kind, pe := Classify(err)
		c.log.Warn().Str("kind", string(kind)).Str("provider_message", pe.Message).Msg("ping failed")
		return "", kind
	}
	return text, ""
}

func (c *OpenAIClient) create(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}

var errEmptyChoices = errors.New("empty choices")

func short(s string) string {
	if len(s) > 150 {
		return s[:150] + "..."
	}
	return s
}
