// Package llm talks to OpenAI compatible chat completion endpoints.
// Every caller keeps a template fallback, so a missing key or a failed
// request never changes a numeric result.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"costlens/pkg/config"
	"costlens/pkg/logger"
	"costlens/pkg/metrics"
)

const completionsPath = "/chat/completions"

// Generator produces prose from a system and a user prompt
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, system, user string) (string, error)
}

// Client is an OpenAI compatible completion client
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	maxRetries  int
	retryDelay  time.Duration
	limiter     *rate.Limiter
}

// NewClient creates a client from cfg. A nil or disabled config yields a
// client whose Generate always returns ErrDisabled.
func NewClient(cfg *config.LLMConfig) *Client {
	if cfg == nil {
		return &Client{}
	}
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  time.Duration(cfg.RetryDelay) * time.Second,
		httpClient:  &http.Client{Timeout: cfg.TimeoutDuration()},
	}
	if cfg.Enabled {
		c.apiKey = cfg.APIKey
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// Enabled reports whether requests will be attempted
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Generate sends a two message conversation and returns the first choice
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: user})
	return c.Chat(ctx, messages)
}

// Chat sends messages with retries. Rate limits and server errors are
// retried with a linear backoff. Client errors fail immediately.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	start := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}

		text, err := c.doChat(ctx, messages)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "success").Inc()
			return text, nil
		}

		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			logger.Warn("Completion request failed, retrying",
				zap.String("model", c.model),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Error(err))
		}
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
	if isRetryable(lastErr) && c.maxRetries > 0 {
		return "", fmt.Errorf("%w (%d retries): %w", ErrRetryExceeded, c.maxRetries, lastErr)
	}
	return "", lastErr
}

func (c *Client) doChat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(&completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	var parsed completionResponse
	decodeErr := json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		if decodeErr == nil && parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
			apiErr.Type = parsed.Error.Type
		}
		return "", apiErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode completion response: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GenerateOr returns the generated text, or fallback when g is nil,
// disabled or failing.
func GenerateOr(ctx context.Context, g Generator, system, user, fallback string) string {
	if g == nil || !g.Enabled() {
		return fallback
	}
	text, err := g.Generate(ctx, system, user)
	if err != nil {
		logger.FromContext(ctx).Warn("Text generation failed, using template", zap.Error(err))
		metrics.LLMRequestsTotal.WithLabelValues(modelOf(g), "fallback").Inc()
		return fallback
	}
	return text
}

func modelOf(g Generator) string {
	if c, ok := g.(*Client); ok {
		return c.model
	}
	return "unknown"
}
