package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/rs/zerolog"
)

// ErrInvalidInput is returned when a request cannot be turned into a domain object.
var ErrInvalidInput = errors.New("invalid input")

// Catalog receives newly created listings.
type Catalog interface {
	Put(l *model.Listing)
}

// LifecycleService turns session and listing lifecycle requests into stored
// listings and published events.
type LifecycleService struct {
	listings repo.ListingRepository
	catalog  Catalog
	events   repo.EventPublisher
	logger   zerolog.Logger
}

// NewLifecycleService creates a new instance of LifecycleService.
func NewLifecycleService(
	listings repo.ListingRepository,
	catalog Catalog,
	events repo.EventPublisher,
	logger *zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		listings: listings,
		catalog:  catalog,
		events:   events,
		logger:   logger.With().Str("layer", "service").Logger(),
	}
}

// JoinSession validates the recipient for the channel and announces the session.
func (s *LifecycleService) JoinSession(ctx context.Context, userID uuid.UUID, channel model.Channel, email string, chatID int64) (*model.Session, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	session := &model.Session{
		UserID:   userID,
		Channel:  channel,
		JoinedAt: time.Now().UTC(),
	}

	switch channel {
	case model.ChannelEmail:
		if _, err := mail.ParseAddress(email); err != nil {
			s.logger.Warn().Err(err).Str("recipient", email).Msg("invalid recipient")
			return nil, fmt.Errorf("%w: invalid email format: %v", ErrInvalidInput, err)
		}
		session.Email = &model.EmailDetails{To: email}
	case model.ChannelTelegram:
		if chatID == 0 {
			s.logger.Warn().Msg("missing telegram chat id")
			return nil, fmt.Errorf("%w: telegram chat id is required", ErrInvalidInput)
		}
		session.Telegram = &model.TelegramDetails{ChatID: chatID}
	case model.ChannelLog:
	default:
		s.logger.Warn().Str("channel", string(channel)).Msg("invalid channel")
		return nil, fmt.Errorf("%w: unknown channel: %s", ErrInvalidInput, channel)
	}

	if err := s.events.PublishSessionJoined(ctx, session); err != nil {
		s.logger.Error().Err(err).Stringer("user_id", userID).Msg("failed to publish session joined")
		return nil, fmt.Errorf("failed to announce session: %w", err)
	}
	return session, nil
}

// LeaveSession announces that the user disconnected.
func (s *LifecycleService) LeaveSession(ctx context.Context, userID uuid.UUID) error {
	if err := s.events.PublishSessionLeft(ctx, userID); err != nil {
		s.logger.Error().Err(err).Stringer("user_id", userID).Msg("failed to publish session left")
		return fmt.Errorf("failed to announce session end: %w", err)
	}
	return nil
}

// CreateListing saves a new listing and makes it visible to watchers.
func (s *LifecycleService) CreateListing(ctx context.Context, sellerID uuid.UUID, title string, price int64, duration time.Duration) (*model.Listing, error) {
	title = strings.TrimSpace(title)
	switch {
	case sellerID == uuid.Nil:
		return nil, fmt.Errorf("%w: seller id is required", ErrInvalidInput)
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case price < 0:
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case duration <= 0:
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}

	listing := model.NewListing(sellerID, title, price, duration)
	if err := s.listings.Save(ctx, listing); err != nil {
		s.logger.Error().Err(err).Msg("failed to save listing")
		return nil, err
	}
	s.catalog.Put(listing)

	s.logger.Info().Stringer("listing_id", listing.ID).Time("expires_at", listing.ExpiresAt).Msg("listing created")
	return listing, nil
}

// EndListing announces that a listing left circulation. The events consumer does the cleanup.
func (s *LifecycleService) EndListing(ctx context.Context, listingID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	if err := s.events.PublishListingEnded(ctx, listingID, reason); err != nil {
		s.logger.Error().Err(err).Stringer("listing_id", listingID).Msg("CRITICAL: failed to publish listing ended")
		return fmt.Errorf("failed to announce listing end: %w", err)
	}
	s.logger.Info().Stringer("listing_id", listingID).Str("reason", reason).Msg("listing end announced")
	return nil
}
