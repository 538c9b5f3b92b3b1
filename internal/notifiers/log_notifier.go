package notifiers

import (
	"context"
	"fmt"

	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/rs/zerolog"
)

// LogNotifier writes presented messages to the service log instead of a real channel.
// It backs ChannelLog sessions and every channel in development mode.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With().Str("component", "log_notifier").Logger(),
	}
}

// Send implements the Notifier interface.
func (n *LogNotifier) Send(_ context.Context, recipient *model.Session, text string) error {
	n.logger.Info().
		Stringer("user_id", recipient.UserID).
		Str("channel", string(recipient.Channel)).
		Str("recipient", recipientOf(recipient)).
		Str("text", text).
		Msg(">>> MOCK SEND: message presented")

	return nil
}

func recipientOf(s *model.Session) string {
	switch s.Channel {
	case model.ChannelEmail:
		if s.Email != nil {
			return s.Email.To
		}
	case model.ChannelTelegram:
		if s.Telegram != nil {
			return fmt.Sprintf("ChatID %d", s.Telegram.ChatID)
		}
	}
	return ""
}
