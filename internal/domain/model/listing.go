package model

import (
	"time"

	"github.com/google/uuid"
)

// Listing is an item offered in the marketplace catalog.
type Listing struct {
	ID        uuid.UUID
	SellerID  uuid.UUID
	Title     string
	Price     int64 // Minor currency units.
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewListing is a factory function to create a listing that expires after the given duration.
func NewListing(sellerID uuid.UUID, title string, price int64, duration time.Duration) *Listing {
	now := time.Now().UTC()
	return &Listing{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Title:     title,
		Price:     price,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}
}

// ExpiredAt reports whether the listing has expired at the given instant.
func (l *Listing) ExpiredAt(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
