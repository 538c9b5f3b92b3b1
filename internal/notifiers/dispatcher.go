package notifiers

import (
	"context"
	"fmt"

	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/rs/zerolog"
)

// ModeProduction enables the real channel notifiers. Any other mode logs only.
const ModeProduction = "production"

// Dispatcher is a composite notifier that routes each message to the notifier of the session's channel.
// It implements the Notifier interface itself.
type Dispatcher struct {
	notifiers map[model.Channel]Notifier
	logger    zerolog.Logger
}

// NewDispatcher creates a new Dispatcher and initializes channel-specific notifiers
// based on the application's configuration mode.
func NewDispatcher(cfg *config.Config, logger *zerolog.Logger) (*Dispatcher, error) {
	log := logger.With().Str("component", "dispatcher").Logger()
	log.Info().Str("mode", cfg.Notifiers.Mode).Msg("initializing notifiers")

	logNotifier := NewLogNotifier(logger)
	notifiersMap := map[model.Channel]Notifier{
		model.ChannelLog:      logNotifier,
		model.ChannelEmail:    logNotifier,
		model.ChannelTelegram: logNotifier,
	}

	if cfg.Notifiers.Mode == ModeProduction {
		if cfg.Notifiers.Email.Host != "" {
			notifiersMap[model.ChannelEmail] = NewEmailNotifier(cfg.Notifiers.Email, logger)
			log.Info().Msg("email notifier enabled")
		}
		if cfg.Notifiers.Telegram.BotToken != "" {
			tgNotifier, err := NewTelegramNotifier(cfg.Notifiers.Telegram, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
			}
			notifiersMap[model.ChannelTelegram] = tgNotifier
			log.Info().Msg("telegram notifier enabled")
		}
	}

	return &Dispatcher{
		notifiers: notifiersMap,
		logger:    log,
	}, nil
}

// Send implements the Notifier interface.
func (d *Dispatcher) Send(ctx context.Context, recipient *model.Session, text string) error {
	notifier, ok := d.notifiers[recipient.Channel]
	if !ok {
		d.logger.Error().Str("channel", string(recipient.Channel)).Msg("no notifier found for channel")
		return fmt.Errorf("notifier for channel %s not found", recipient.Channel)
	}

	return notifier.Send(ctx, recipient, text)
}
