package notifier

import (
	"fmt"
	"strings"
)

// maxListed caps the spikes rendered in one message
const maxListed = 10

func trendIcon(pct float64) string {
	switch {
	case pct >= 100:
		return "🔥"
	case pct > 0:
		return "📈"
	case pct < 0:
		return "📉"
	}
	return "➡️"
}

// FormatMarkdown renders alert as a markdown table
func FormatMarkdown(alert *Alert) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("## ⚠️ %s\n\n", alert.Title))
	b.WriteString(fmt.Sprintf("**%d month-over-month spikes found**\n\n", len(alert.Spikes)))

	b.WriteString("| Month | Provider | Service | Previous | Current | Change |\n")
	b.WriteString("| :--- | :--- | :--- | ---: | ---: | ---: |")
	for _, s := range alert.Spikes[:min(maxListed, len(alert.Spikes))] {
		b.WriteString(fmt.Sprintf("\n| %s | %s | **%s** | $%.2f | $%.2f | %s %+.1f%% |",
			s.Month, s.Provider, s.Service, s.PrevCost, s.Cost, trendIcon(s.VariationPct), s.VariationPct))
	}
	b.WriteString("\n\n")

	if extra := len(alert.Spikes) - maxListed; extra > 0 {
		b.WriteString(fmt.Sprintf("> *...and %d more*\n\n", extra))
	}

	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("*⏰ Generated at %s*", alert.GeneratedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatText renders alert as a bullet list for channels without tables
func FormatText(alert *Alert) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ *%s*\n\n", alert.Title))
	for _, s := range alert.Spikes[:min(maxListed, len(alert.Spikes))] {
		b.WriteString(fmt.Sprintf("%s %s %s/%s: $%.2f → $%.2f (%+.1f%%)\n",
			trendIcon(s.VariationPct), s.Month, s.Provider, s.Service, s.PrevCost, s.Cost, s.VariationPct))
	}
	if extra := len(alert.Spikes) - maxListed; extra > 0 {
		b.WriteString(fmt.Sprintf("...and %d more\n", extra))
	}
	b.WriteString(fmt.Sprintf("\n⏰ %s", alert.GeneratedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}
