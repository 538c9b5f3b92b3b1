// Package notify queues messages for users who are not connected and delivers
// them in bounded batches when the user's session becomes active.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/async"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxDeliverPerJoin bounds a single delivery batch.
	DefaultMaxDeliverPerJoin = 50

	// OverflowMessageKey is presented after a batch when more notifications remain queued.
	OverflowMessageKey = "general.offline notifications more"

	claimTimeout = 2 * time.Second
	// defaultClaimTTL bounds how long a crashed delivery can hold the lease.
	defaultClaimTTL = 30 * time.Second
)

// Gateway is the asynchronous persistence contract for queued notifications.
type Gateway interface {
	InsertNotification(n *model.QueuedNotification, cb async.Callback[struct{}])
	LoadNotificationsForUser(userID uuid.UUID, cb async.Callback[[]*model.QueuedNotification])
	DeleteNotifications(ids []uuid.UUID, cb async.Callback[struct{}])
}

// Localizer resolves a message key and substitutes its placeholders.
type Localizer interface {
	Render(key string, placeholders map[string]string) string
}

// Presenter shows text to a connected user.
type Presenter interface {
	Present(text string)
}

// Session is a connected user. Post runs task on the session's own goroutine
// and returns false if the session is already closed.
type Session interface {
	UserID() uuid.UUID
	Post(task func(p Presenter)) bool
}

// Queue stores notifications durably and hands them to sessions.
// It keeps no state besides its configuration.
type Queue struct {
	enabled    bool
	maxPerJoin int
	claimTTL   time.Duration

	gateway   Gateway
	localizer Localizer
	claimer   repo.DeliveryClaimer
	logger    zerolog.Logger
}

// NewQueue creates a new instance of Queue. claimer may be nil, in which case
// delivery assumes one session per user at a time.
func NewQueue(
	cfg config.NotificationsConfig,
	gateway Gateway,
	localizer Localizer,
	claimer repo.DeliveryClaimer,
	logger *zerolog.Logger,
) *Queue {
	maxPerJoin := cfg.MaxDeliverPerJoin
	if maxPerJoin <= 0 {
		maxPerJoin = DefaultMaxDeliverPerJoin
	}
	claimTTL := cfg.ClaimTTL
	if claimTTL <= 0 {
		claimTTL = defaultClaimTTL
	}
	return &Queue{
		enabled:    cfg.OfflineEnabled,
		maxPerJoin: maxPerJoin,
		claimTTL:   claimTTL,
		gateway:    gateway,
		localizer:  localizer,
		claimer:    claimer,
		logger:     logger.With().Str("component", "notification_queue").Logger(),
	}
}

// Queue persists a notification for the user. It never blocks and reports nothing
// back: insert failures are logged by the gateway.
func (q *Queue) Queue(userID uuid.UUID, messageKey string, placeholders map[string]string) {
	if !q.enabled {
		return
	}
	n, err := model.NewQueuedNotification(userID, messageKey, placeholders)
	if err != nil {
		q.logger.Warn().Err(err).Str("message_key", messageKey).Msg("failed to encode notification placeholders")
		return
	}
	q.gateway.InsertNotification(n, nil)
}

// DeliverTo presents up to the configured batch size of the user's queued notifications
// on the session, then deletes exactly the presented ones. Delivery is at-least-once.
func (q *Queue) DeliverTo(s Session) {
	userID := s.UserID()
	log := q.logger.With().Stringer("user_id", userID).Logger()

	token, ok := q.claim(userID, &log)
	if !ok {
		log.Debug().Msg("delivery already in progress for user, skipping")
		return
	}

	q.gateway.LoadNotificationsForUser(userID, func(list []*model.QueuedNotification, err error) {
		if err != nil || len(list) == 0 {
			q.release(userID, token, &log)
			return
		}

		batch := list
		if len(batch) > q.maxPerJoin {
			batch = batch[:q.maxPerJoin]
		}
		overflow := len(list) - len(batch)

		ids := make([]uuid.UUID, len(batch))
		for i, n := range batch {
			ids[i] = n.ID
		}

		posted := s.Post(func(p Presenter) {
			for _, n := range batch {
				p.Present(q.localizer.Render(n.MessageKey, n.PlaceholderValues()))
			}
			if overflow > 0 {
				p.Present(q.localizer.Render(OverflowMessageKey, map[string]string{
					"count": strconv.Itoa(overflow),
				}))
			}
			q.gateway.DeleteNotifications(ids, func(_ struct{}, _ error) {
				q.release(userID, token, &log)
			})
			log.Info().Int("delivered", len(batch)).Int("remaining", overflow).Msg("queued notifications delivered")
		})
		if !posted {
			log.Debug().Msg("session closed before delivery, notifications stay queued")
			q.release(userID, token, &log)
		}
	})
}

// claim takes the per-user delivery lease. It returns ok=false only when another
// holder has the lease; claimer failures fall back to unclaimed delivery.
func (q *Queue) claim(userID uuid.UUID, log *zerolog.Logger) (string, bool) {
	if q.claimer == nil {
		return "", true
	}
	ctx, cancel := context.WithTimeout(context.Background(), claimTimeout)
	defer cancel()

	token, ok, err := q.claimer.Claim(ctx, userID, q.claimTTL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to claim delivery, delivering unclaimed")
		return "", true
	}
	return token, ok
}

func (q *Queue) release(userID uuid.UUID, token string, log *zerolog.Logger) {
	if q.claimer == nil || token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), claimTimeout)
	defer cancel()

	if err := q.claimer.Release(ctx, userID, token); err != nil {
		log.Warn().Err(err).Msg("failed to release delivery claim")
	}
}
