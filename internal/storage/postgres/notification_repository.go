package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Ensure NotificationRepository implements the interface
var _ repo.NotificationRepository = (*NotificationRepository)(nil)

// NotificationRepository implements the domain.repository.NotificationRepository interface
// using PostgreSQL as a backend.
type NotificationRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewNotificationRepository creates a new instance of the NotificationRepository
func NewNotificationRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *NotificationRepository {
	return &NotificationRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_notification_repository").Logger(),
	}
}

// Insert persists a new queued notification.
func (r *NotificationRepository) Insert(ctx context.Context, n *model.QueuedNotification) error {
	placeholders := n.Placeholders
	if placeholders == "" {
		placeholders = "{}"
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO queued_notifications (id, user_id, message_key, placeholders, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		n.ID, n.UserID, n.MessageKey, placeholders, n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repo.ErrDuplicateRecord
		}
		r.logger.Err(err).Stringer("id", n.ID).Msg("cannot insert notification")
		return fmt.Errorf("postgres: InsertNotification failed: %w", err)
	}
	return nil
}

// ListForUser returns the user's queued notifications, oldest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.QueuedNotification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, message_key, placeholders::text, created_at
		 FROM queued_notifications
		 WHERE user_id = $1
		 ORDER BY created_at, seq`,
		userID,
	)
	if err != nil {
		r.logger.Err(err).Stringer("user_id", userID).Msg("cannot list notifications")
		return nil, fmt.Errorf("postgres: ListNotifications failed: %w", err)
	}
	defer rows.Close()

	var out []*model.QueuedNotification
	for rows.Next() {
		var n model.QueuedNotification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MessageKey, &n.Placeholders, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: ListNotifications scan failed: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: ListNotifications failed: %w", err)
	}
	return out, nil
}

// Delete removes the notifications with the given IDs.
func (r *NotificationRepository) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM queued_notifications WHERE id = ANY($1)`, ids); err != nil {
		r.logger.Err(err).Int("count", len(ids)).Msg("cannot delete notifications")
		return fmt.Errorf("postgres: DeleteNotifications failed: %w", err)
	}
	return nil
}
