package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/circuitbreaker"
	"github.com/unibot/backend/pkg/logger"
)

var ErrEmptyCompletion = errors.New("completion returned no choices")

type Config struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint (Groq by default).
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      1,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Logger:           logger.GetLogger(),
	})

	if cfg.APIKey == "" {
		logger.Warn("LLM API key is empty, completions will fail")
	}

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.String("base_url", clientCfg.BaseURL),
	)

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		cb:          cb,
	}
}

// Complete sends one system and one user message and returns the trimmed
// reply. Failures are returned as-is; there are no retries.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: user,
		},
	}

	var content string

	err := c.cb.Execute(func() error {
		resp, err := c.client.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyCompletion
		}

		logger.Debug("LLM completion generated",
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}

	return content, nil
}
