package notify

import (
	"context"
	"log/slog"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
)

// Notifier delivers operator alerts (fills, critical errors).
// Notify is best effort: callers log a returned error and move on.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Log is the fallback notifier used when no Telegram bot is configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, text string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Notification", slog.String("text", infra.StripANSI(text)))
	return nil
}

// New picks Telegram when a token and chat id are configured, Log otherwise.
func New(cfg *infra.Config) Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		slog.Info("Telegram not configured, notifications go to the log")
		return Log{}
	}
	return NewTelegram(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}
