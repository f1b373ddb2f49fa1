package config

import "fmt"

// NotifierConfig routes anomaly alerts raised by scheduled scans
type NotifierConfig struct {
	Webhook  *WebhookConfig  `json:"webhook" yaml:"webhook"`
	Telegram *TelegramConfig `json:"telegram" yaml:"telegram"`
}

// WebhookConfig is a chat robot webhook accepting markdown messages
// (WeCom, Lark, or any endpoint speaking the same JSON)
type WebhookConfig struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	URL          string   `json:"url" yaml:"url"`
	MaxRetries   int      `json:"max_retries" yaml:"max_retries"`
	RetryDelay   int      `json:"retry_delay" yaml:"retry_delay"` // seconds
	Timeout      int      `json:"timeout" yaml:"timeout"`         // seconds
	MentionUsers []string `json:"mention_users" yaml:"mention_users"`
}

// TelegramConfig represents Telegram notification configuration
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	Timeout  int    `json:"timeout" yaml:"timeout"`
	APIBase  string `json:"api_base" yaml:"api_base"`
}

// NewNotifierConfig creates a notifier config with env defaults
func NewNotifierConfig() *NotifierConfig {
	return &NotifierConfig{
		Webhook: &WebhookConfig{
			Enabled:    getEnvBool("ALERT_WEBHOOK_ENABLED", false),
			URL:        getEnv("ALERT_WEBHOOK_URL", ""),
			MaxRetries: getEnvInt("ALERT_WEBHOOK_MAX_RETRIES", 3),
			RetryDelay: getEnvInt("ALERT_WEBHOOK_RETRY_DELAY", 2),
			Timeout:    getEnvInt("ALERT_WEBHOOK_TIMEOUT", 30),
		},
		Telegram: &TelegramConfig{
			Enabled:  getEnvBool("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			Timeout:  getEnvInt("TELEGRAM_TIMEOUT", 10),
			APIBase:  getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		},
	}
}

// Validate validates notifier configuration
func (n *NotifierConfig) Validate() error {
	d := NewNotifierConfig()
	if n.Webhook == nil {
		n.Webhook = d.Webhook
	}
	if n.Telegram == nil {
		n.Telegram = d.Telegram
	}

	if w := n.Webhook; w.Enabled {
		if w.URL == "" {
			return fmt.Errorf("%w: webhook url", ErrMissingRequired)
		}
		if w.MaxRetries < 0 || w.RetryDelay < 0 || w.Timeout < 0 {
			return fmt.Errorf("%w: webhook retries, delay and timeout must not be negative", ErrInvalidValue)
		}
	}
	if t := n.Telegram; t.Enabled {
		if t.BotToken == "" {
			return fmt.Errorf("%w: telegram bot_token", ErrMissingRequired)
		}
		if t.ChatID == "" {
			return fmt.Errorf("%w: telegram chat_id", ErrMissingRequired)
		}
		if t.APIBase == "" {
			t.APIBase = d.Telegram.APIBase
		}
	}
	return nil
}

// Enabled reports whether any channel is switched on
func (n *NotifierConfig) Enabled() bool {
	if n == nil {
		return false
	}
	return (n.Webhook != nil && n.Webhook.Enabled) || (n.Telegram != nil && n.Telegram.Enabled)
}
