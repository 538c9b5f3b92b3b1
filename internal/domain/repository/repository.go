package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateRecord is returned when a unique constraint rejects a write.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// WatchRepository defines the contract for durable watch entries (user, listing) pairs.
type WatchRepository interface {
	// LoadAll returns every watch entry grouped by user.
	LoadAll(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error)

	// Add inserts a pair. It returns false when the pair already exists.
	Add(ctx context.Context, userID, listingID uuid.UUID) (bool, error)

	// Remove deletes a pair. It returns true once the pair is confirmed absent.
	Remove(ctx context.Context, userID, listingID uuid.UUID) (bool, error)

	// RemoveForListing deletes every pair that references the listing.
	RemoveForListing(ctx context.Context, listingID uuid.UUID) error
}

// NotificationRepository defines the contract for queued notification persistence.
type NotificationRepository interface {
	// Insert persists a new queued notification.
	Insert(ctx context.Context, n *model.QueuedNotification) error

	// ListForUser returns the user's queued notifications, oldest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.QueuedNotification, error)

	// Delete removes the notifications with the given IDs.
	Delete(ctx context.Context, ids []uuid.UUID) error
}

// ListingRepository defines the contract for the catalog's durable listings.
type ListingRepository interface {
	// Save persists a new listing.
	Save(ctx context.Context, l *model.Listing) error

	// LoadActive returns every listing that has not been ended.
	LoadActive(ctx context.Context) ([]*model.Listing, error)

	// MarkEnded records that the listing left the catalog.
	MarkEnded(ctx context.Context, id uuid.UUID) error
}

// DeliveryClaimer grants a short-lived, per-user lease so only one session delivers queued notifications at a time.
type DeliveryClaimer interface {
	// Claim tries to take the lease. ok is false when another holder has it.
	Claim(ctx context.Context, userID uuid.UUID, ttl time.Duration) (token string, ok bool, err error)

	// Release gives the lease back if it is still held with token.
	Release(ctx context.Context, userID uuid.UUID, token string) error
}

// EventPublisher publishes lifecycle events consumed by the events worker.
type EventPublisher interface {
	// PublishSessionJoined announces that a user became active.
	PublishSessionJoined(ctx context.Context, s *model.Session) error

	// PublishSessionLeft announces that a user disconnected.
	PublishSessionLeft(ctx context.Context, userID uuid.UUID) error

	// PublishListingEnded announces that a listing left the catalog (sold, expired, purged).
	PublishListingEnded(ctx context.Context, listingID uuid.UUID, reason string) error
}
