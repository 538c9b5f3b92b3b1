package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
)

// CreateListingRequest defines the structure for a new listing request.
// It uses `json` tags for unmarshalling and `binding` for validation with Gin.
type CreateListingRequest struct {
	SellerID        uuid.UUID `json:"seller_id"`
	Title           string    `json:"title" binding:"required"`
	Price           int64     `json:"price" binding:"gte=0"`
	DurationSeconds int64     `json:"duration_seconds" binding:"required,gt=0"`
}

// EndListingRequest carries why a listing left the catalog (sold, expired, cancelled).
type EndListingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// QueueNotificationRequest queues a message for a user.
type QueueNotificationRequest struct {
	MessageKey   string            `json:"message_key" binding:"required"`
	Placeholders map[string]string `json:"placeholders"`
}

// JoinSessionRequest announces that a user connected through a channel.
type JoinSessionRequest struct {
	UserID         uuid.UUID `json:"user_id"`
	Channel        string    `json:"channel" binding:"required,oneof=email telegram log"`
	Email          string    `json:"email"`
	TelegramChatID int64     `json:"telegram_chat_id"`
}

// ListingResponse defines the structure for a listing in API responses.
type ListingResponse struct {
	ID        uuid.UUID `json:"id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchlistIDsResponse lists the raw watched listing IDs.
type WatchlistIDsResponse struct {
	ListingIDs []uuid.UUID `json:"listing_ids"`
}

// WatchlistCountResponse reports the size of a user's watchlist.
type WatchlistCountResponse struct {
	Count int `json:"count"`
}

// WatchResponse reports the outcome of watching a listing.
type WatchResponse struct {
	ListingID uuid.UUID `json:"listing_id"`
	Added     bool      `json:"added"`
}

// ErrorResponse defines a standard structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toListingResponse(l *model.Listing) ListingResponse {
	return ListingResponse{
		ID:        l.ID,
		SellerID:  l.SellerID,
		Title:     l.Title,
		Price:     l.Price,
		ExpiresAt: l.ExpiresAt,
		CreatedAt: l.CreatedAt,
	}
}
