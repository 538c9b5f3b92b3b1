// Package gateway exposes the durable stores as asynchronous, single-completion operations.
package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/async"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Error is a failure reported by the persistence backend for a single operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Gateway runs repository calls on the async executor. Every method completes its callback exactly once.
type Gateway struct {
	watches       repo.WatchRepository
	notifications repo.NotificationRepository
	executor      *async.Executor
	logger        zerolog.Logger
}

// New creates a new instance of Gateway.
func New(
	watches repo.WatchRepository,
	notifications repo.NotificationRepository,
	executor *async.Executor,
	logger *zerolog.Logger,
) *Gateway {
	return &Gateway{
		watches:       watches,
		notifications: notifications,
		executor:      executor,
		logger:        logger.With().Str("layer", "gateway").Logger(),
	}
}

// LoadAllWatchEntries loads every watch entry grouped by user.
func (g *Gateway) LoadAllWatchEntries(cb async.Callback[map[uuid.UUID][]uuid.UUID]) {
	run(g, "load_watch_entries", func(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
		return g.watches.LoadAll(ctx)
	}, cb)
}

// AddWatchEntry inserts a (user, listing) pair. The result is false if the pair already existed.
func (g *Gateway) AddWatchEntry(userID, listingID uuid.UUID, cb async.Callback[bool]) {
	run(g, "add_watch_entry", func(ctx context.Context) (bool, error) {
		return g.watches.Add(ctx, userID, listingID)
	}, cb)
}

// RemoveWatchEntry deletes a (user, listing) pair.
func (g *Gateway) RemoveWatchEntry(userID, listingID uuid.UUID, cb async.Callback[bool]) {
	run(g, "remove_watch_entry", func(ctx context.Context) (bool, error) {
		return g.watches.Remove(ctx, userID, listingID)
	}, cb)
}

// RemoveWatchEntriesForListing deletes every watch entry of a listing.
func (g *Gateway) RemoveWatchEntriesForListing(listingID uuid.UUID, cb async.Callback[struct{}]) {
	run(g, "remove_watch_entries_for_listing", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.watches.RemoveForListing(ctx, listingID)
	}, cb)
}

// InsertNotification persists a queued notification. Failures are logged here; cb may be nil.
func (g *Gateway) InsertNotification(n *model.QueuedNotification, cb async.Callback[struct{}]) {
	run(g, "insert_notification", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.notifications.Insert(ctx, n)
	}, cb)
}

// LoadNotificationsForUser loads the user's queued notifications in storage order.
func (g *Gateway) LoadNotificationsForUser(userID uuid.UUID, cb async.Callback[[]*model.QueuedNotification]) {
	run(g, "load_notifications", func(ctx context.Context) ([]*model.QueuedNotification, error) {
		return g.notifications.ListForUser(ctx, userID)
	}, cb)
}

// DeleteNotifications removes delivered notifications. Failures are logged here; cb may be nil.
func (g *Gateway) DeleteNotifications(ids []uuid.UUID, cb async.Callback[struct{}]) {
	run(g, "delete_notifications", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.notifications.Delete(ctx, ids)
	}, cb)
}

// run submits op and wraps any failure into *Error before completing cb.
func run[T any](g *Gateway, op string, fn func(ctx context.Context) (T, error), cb async.Callback[T]) {
	async.Submit(g.executor, fn, func(result T, err error) {
		if err != nil {
			g.logger.Warn().Err(err).Str("op", op).Msg("persistence operation failed")
			err = &Error{Op: op, Err: err}
		}
		if cb != nil {
			cb(result, err)
		}
	})
}
