package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"costlens/pkg/config"
	"costlens/pkg/logger"
)

// WebhookMessage is the robot webhook payload
type WebhookMessage struct {
	MsgType  string       `json:"msgtype"`
	Text     *TextMsg     `json:"text,omitempty"`
	Markdown *MarkdownMsg `json:"markdown_v2,omitempty"`
}

// TextMsg is a plain text message
type TextMsg struct {
	Content       string   `json:"content"`
	MentionedList []string `json:"mentioned_list,omitempty"`
}

// MarkdownMsg is a markdown message; markdown_v2 renders tables
type MarkdownMsg struct {
	Content string `json:"content"`
}

// WebhookResponse carries the business status of a delivery
type WebhookResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Webhook posts alerts to a chat robot
type Webhook struct {
	url          string
	httpClient   *http.Client
	maxRetries   int
	retryDelay   time.Duration
	mentionUsers []string
}

// NewWebhook creates a webhook client
func NewWebhook(cfg *config.WebhookConfig) *Webhook {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:          cfg.URL,
		httpClient:   &http.Client{Timeout: timeout},
		maxRetries:   cfg.MaxRetries,
		retryDelay:   time.Duration(cfg.RetryDelay) * time.Second,
		mentionUsers: cfg.MentionUsers,
	}
}

// Notify sends alert as a markdown table, followed by a text mention when
// users are configured
func (w *Webhook) Notify(ctx context.Context, alert *Alert) error {
	msg := &WebhookMessage{
		MsgType:  "markdown_v2",
		Markdown: &MarkdownMsg{Content: FormatMarkdown(alert)},
	}
	if err := w.send(ctx, msg); err != nil {
		return err
	}
	if len(w.mentionUsers) == 0 {
		return nil
	}
	return w.send(ctx, &WebhookMessage{
		MsgType: "text",
		Text: &TextMsg{
			Content:       fmt.Sprintf("%d cost spikes need attention", len(alert.Spikes)),
			MentionedList: w.mentionUsers,
		},
	})
}

// send delivers msg, retrying up to maxRetries times
func (w *Webhook) send(ctx context.Context, msg *WebhookMessage) error {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retryDelay):
			}
		}

		lastErr = w.doSend(ctx, msg)
		if lastErr == nil {
			return nil
		}
		if attempt < w.maxRetries {
			logger.Warn("Webhook delivery failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", w.maxRetries),
				logger.ErrorField(lastErr))
		}
	}
	return fmt.Errorf("%w (%d retries): %w", ErrRetryExceeded, w.maxRetries, lastErr)
}

func (w *Webhook) doSend(ctx context.Context, msg *WebhookMessage) error {
	if w.url == "" {
		return fmt.Errorf("%w: webhook url", ErrNotConfigured)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var wr WebhookResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if wr.ErrCode != 0 {
		return &APIError{Channel: "webhook", Code: wr.ErrCode, Message: wr.ErrMsg}
	}
	return nil
}
