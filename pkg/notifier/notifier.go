// Package notifier pushes anomaly alerts to chat channels
package notifier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"costlens/pkg/anomaly"
	"costlens/pkg/config"
	"costlens/pkg/logger"
)

// Notifier delivers one alert
type Notifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

// Alert is the result of one anomaly scan
type Alert struct {
	Title       string              `json:"title"`
	Spikes      []anomaly.MoMRecord `json:"spikes"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// NewAlert builds an alert for spikes stamped with the current time
func NewAlert(spikes []anomaly.MoMRecord) *Alert {
	return &Alert{
		Title:       "Cloud cost anomalies",
		Spikes:      spikes,
		GeneratedAt: time.Now(),
	}
}

// Dispatcher fans an alert out to every configured channel
type Dispatcher struct {
	channels map[string]Notifier
}

// New builds a Dispatcher from cfg. It returns nil when no channel is enabled.
func New(cfg *config.NotifierConfig) *Dispatcher {
	if !cfg.Enabled() {
		return nil
	}
	d := &Dispatcher{channels: make(map[string]Notifier)}
	if cfg.Webhook != nil && cfg.Webhook.Enabled {
		d.channels["webhook"] = NewWebhook(cfg.Webhook)
	}
	if cfg.Telegram != nil && cfg.Telegram.Enabled {
		d.channels["telegram"] = NewTelegram(cfg.Telegram)
	}
	return d
}

// Channels lists the enabled channel names
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	return names
}

// Notify sends alert on every channel. A failing channel does not stop the others.
func (d *Dispatcher) Notify(ctx context.Context, alert *Alert) error {
	if len(alert.Spikes) == 0 {
		return nil
	}
	var errs []error
	for name, ch := range d.channels {
		if err := ch.Notify(ctx, alert); err != nil {
			logger.Warn("Alert delivery failed", zap.String("channel", name), logger.ErrorField(err))
			errs = append(errs, err)
			continue
		}
		logger.Info("Alert delivered", zap.String("channel", name), zap.Int("spikes", len(alert.Spikes)))
	}
	return errors.Join(errs...)
}
