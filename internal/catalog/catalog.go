// Package catalog keeps the in-process view of marketplace listings that the
// watchlist consults to decide whether a watched listing is still live.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Catalog is an in-memory listing index plus a garbage bin for listings that
// have left circulation but are not purged yet.
type Catalog struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]*model.Listing
	garbage  map[uuid.UUID]time.Time

	repo   repo.ListingRepository
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a new instance of Catalog.
func New(listings repo.ListingRepository, logger *zerolog.Logger) *Catalog {
	return &Catalog{
		listings: make(map[uuid.UUID]*model.Listing),
		garbage:  make(map[uuid.UUID]time.Time),
		repo:     listings,
		now:      time.Now,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Load replaces the index with the active listings from storage.
func (c *Catalog) Load(ctx context.Context) error {
	listings, err := c.repo.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("catalog: load failed: %w", err)
	}

	index := make(map[uuid.UUID]*model.Listing, len(listings))
	for _, l := range listings {
		index[l.ID] = l
	}

	c.mu.Lock()
	c.listings = index
	c.garbage = make(map[uuid.UUID]time.Time)
	c.mu.Unlock()

	c.logger.Info().Int("listings", len(index)).Msg("catalog loaded")
	return nil
}

// Get returns a copy of the listing, or false if it is not in the catalog.
func (c *Catalog) Get(id uuid.UUID) (*model.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.listings[id]
	if !ok {
		return nil, false
	}
	cp := *l
	return &cp, true
}

// IsExpired reports whether the listing's expiry has passed.
func (c *Catalog) IsExpired(l *model.Listing) bool {
	return l.ExpiredAt(c.now())
}

// IsInGarbage reports whether the listing is waiting to be purged.
func (c *Catalog) IsInGarbage(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.garbage[id]
	return ok
}

// Put adds or replaces a listing.
func (c *Catalog) Put(l *model.Listing) {
	cp := *l

	c.mu.Lock()
	defer c.mu.Unlock()

	c.listings[cp.ID] = &cp
	delete(c.garbage, cp.ID)
}

// MoveToGarbage marks a listing as out of circulation. Unknown IDs are ignored.
func (c *Catalog) MoveToGarbage(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.listings[id]; ok {
		c.garbage[id] = c.now()
	}
}

// Purge removes a listing from the catalog entirely.
func (c *Catalog) Purge(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.listings, id)
	delete(c.garbage, id)
}
