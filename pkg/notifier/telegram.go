package notifier

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"costlens/pkg/config"
	"costlens/pkg/logger"
)

// TelegramMessage represents a message to be sent via Telegram
type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// TelegramResponse represents Telegram API response
type TelegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// Telegram sends alerts through a bot
type Telegram struct {
	cfg        *config.TelegramConfig
	httpClient *http.Client
}

// NewTelegram creates a Telegram notifier
func NewTelegram(cfg *config.TelegramConfig) *Telegram {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

// Notify sends alert as a text message
func (t *Telegram) Notify(ctx context.Context, alert *Alert) error {
	return t.SendMessage(ctx, FormatText(alert))
}

// SendMessage sends text to the configured chat
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if t.cfg.BotToken == "" || t.cfg.ChatID == "" {
		return fmt.Errorf("%w: telegram bot token or chat ID", ErrNotConfigured)
	}

	body, err := json.Marshal(&TelegramMessage{ChatID: t.cfg.ChatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	base := strings.TrimRight(t.cfg.APIBase, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Sending Telegram message", zap.String("chat_id", t.cfg.ChatID), zap.Int("length", len(text)))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var tr TelegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !tr.OK {
		return &APIError{Channel: "telegram", Code: tr.ErrorCode, Message: tr.Description}
	}
	return nil
}
