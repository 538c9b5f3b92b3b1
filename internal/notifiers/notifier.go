package notifiers

import (
	"context"

	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
)

// Notifier defines the interface for any channel that presents text to a connected user.
type Notifier interface {
	// Send presents text to the session's recipient.
	Send(ctx context.Context, recipient *model.Session, text string) error
}
