package notifiers

import (
	"context"
	"fmt"

	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EmailNotifier presents messages via SMTP.
type EmailNotifier struct {
	dialer  *gomail.Dialer
	from    string
	subject string
	logger  zerolog.Logger
}

// NewEmailNotifier creates a new instance of EmailNotifier.
func NewEmailNotifier(cfg config.EmailConfig, logger *zerolog.Logger) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailNotifier{
		dialer:  d,
		from:    cfg.From,
		subject: cfg.Subject,
		logger:  logger.With().Str("component", "email_notifier").Logger(),
	}
}

// Send implements the Notifier interface for email.
func (n *EmailNotifier) Send(_ context.Context, recipient *model.Session, text string) error {
	if recipient.Channel != model.ChannelEmail || recipient.Email == nil {
		return fmt.Errorf("invalid recipient for email channel")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", recipient.Email.To)
	m.SetHeader("Subject", n.subject)
	m.SetBody("text/plain", text)

	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Error().Err(err).Stringer("user_id", recipient.UserID).Msg("failed to send email")
		return err
	}

	n.logger.Debug().Stringer("user_id", recipient.UserID).Str("recipient", recipient.Email.To).Msg("email sent")
	return nil
}
