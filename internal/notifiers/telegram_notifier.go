package notifiers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/rs/zerolog"
)

// TelegramNotifier presents messages via a Telegram bot.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

// NewTelegramNotifier creates a new instance of TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot api: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		logger: logger.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// Send implements the Notifier interface for Telegram. Text is sent as plain text.
func (n *TelegramNotifier) Send(_ context.Context, recipient *model.Session, text string) error {
	if recipient.Channel != model.ChannelTelegram || recipient.Telegram == nil {
		return fmt.Errorf("invalid recipient for telegram channel")
	}

	msg := tgbotapi.NewMessage(recipient.Telegram.ChatID, text)

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Stringer("user_id", recipient.UserID).Msg("failed to send telegram message")
		return err
	}

	n.logger.Debug().Stringer("user_id", recipient.UserID).Int64("chat_id", recipient.Telegram.ChatID).Msg("telegram message sent")
	return nil
}
