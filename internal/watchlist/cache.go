// Package watchlist caches which listings each user watches. The cache is
// write-through: memory changes only after the persistence gateway confirms.
package watchlist

import (
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/async"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/rs/zerolog"
)

// Gateway is the asynchronous persistence contract for watch entries.
type Gateway interface {
	LoadAllWatchEntries(cb async.Callback[map[uuid.UUID][]uuid.UUID])
	AddWatchEntry(userID, listingID uuid.UUID, cb async.Callback[bool])
	RemoveWatchEntry(userID, listingID uuid.UUID, cb async.Callback[bool])
	RemoveWatchEntriesForListing(listingID uuid.UUID, cb async.Callback[struct{}])
}

// Catalog answers whether a listing is still in circulation.
type Catalog interface {
	Get(id uuid.UUID) (*model.Listing, bool)
	IsExpired(l *model.Listing) bool
	IsInGarbage(id uuid.UUID) bool
}

// Cache is the in-memory user -> watched listings mapping.
type Cache struct {
	idx     atomic.Pointer[index]
	gateway Gateway
	catalog Catalog
	logger  zerolog.Logger
}

// NewCache creates an empty cache. Call Load to warm it.
func NewCache(gateway Gateway, catalog Catalog, logger *zerolog.Logger) *Cache {
	c := &Cache{
		gateway: gateway,
		catalog: catalog,
		logger:  logger.With().Str("component", "watchlist_cache").Logger(),
	}
	c.idx.Store(newIndex())
	return c
}

// Load replaces the whole mapping with the stored watch entries.
// On failure the current mapping is kept. done receives the number of users loaded and may be nil.
// Load must not run concurrently with itself.
func (c *Cache) Load(done async.Callback[int]) {
	c.gateway.LoadAllWatchEntries(func(entries map[uuid.UUID][]uuid.UUID, err error) {
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to load watchlist")
			if done != nil {
				done(0, err)
			}
			return
		}

		next := newIndex()
		for userID, ids := range entries {
			if len(ids) == 0 {
				continue
			}
			set := make(listingSet, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			next.shardFor(userID).users[userID] = set
		}
		c.idx.Store(next)

		users := next.userCount()
		c.logger.Info().Int("users", users).Msg("watchlist loaded")
		if done != nil {
			done(users, nil)
		}
	})
}

// IsWatching reports whether the user watches the listing.
func (c *Cache) IsWatching(userID, listingID uuid.UUID) bool {
	return c.idx.Load().contains(userID, listingID)
}

// WatchedListingIDs returns a copy of the user's watched listing IDs, in no particular order.
func (c *Cache) WatchedListingIDs(userID uuid.UUID) []uuid.UUID {
	return c.idx.Load().snapshot(userID)
}

// WatchedListings resolves the user's watched IDs against the catalog and
// drops listings that are gone, expired or in the garbage bin.
// Stale IDs are left in the cache.
func (c *Cache) WatchedListings(userID uuid.UUID) []*model.Listing {
	ids := c.WatchedListingIDs(userID)
	listings := make([]*model.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := c.Live(id); ok {
			listings = append(listings, l)
		}
	}
	return listings
}

// Live looks a listing up in the catalog and reports whether it is still in circulation.
func (c *Cache) Live(listingID uuid.UUID) (*model.Listing, bool) {
	l, ok := c.catalog.Get(listingID)
	if !ok || c.catalog.IsExpired(l) || c.catalog.IsInGarbage(listingID) {
		return nil, false
	}
	return l, true
}

// WatchlistCount is the size of the user's raw watch set.
func (c *Cache) WatchlistCount(userID uuid.UUID) int {
	return c.idx.Load().count(userID)
}

// Watchers returns the users currently watching the listing.
func (c *Cache) Watchers(listingID uuid.UUID) []uuid.UUID {
	return c.idx.Load().watchers(listingID)
}

// Add persists the pair and mirrors it in memory once the gateway reports it inserted.
// cb receives false with a nil error when the pair was rejected as a duplicate.
func (c *Cache) Add(userID, listingID uuid.UUID, cb async.Callback[bool]) {
	c.gateway.AddWatchEntry(userID, listingID, func(added bool, err error) {
		if err != nil {
			if cb != nil {
				cb(false, err)
			}
			return
		}
		if added {
			c.idx.Load().add(userID, listingID)
		}
		if cb != nil {
			cb(added, nil)
		}
	})
}

// Remove deletes the pair from storage and then from memory.
func (c *Cache) Remove(userID, listingID uuid.UUID, cb async.Callback[bool]) {
	c.gateway.RemoveWatchEntry(userID, listingID, func(removed bool, err error) {
		if err != nil {
			if cb != nil {
				cb(false, err)
			}
			return
		}
		if removed {
			c.idx.Load().remove(userID, listingID)
		}
		if cb != nil {
			cb(removed, nil)
		}
	})
}

// RemoveListing drops a listing from every watchlist after storage has dropped it.
// On failure memory is left as is so cache and storage keep agreeing. done may be nil.
func (c *Cache) RemoveListing(listingID uuid.UUID, done async.Callback[struct{}]) {
	c.gateway.RemoveWatchEntriesForListing(listingID, func(_ struct{}, err error) {
		if err != nil {
			c.logger.Warn().Err(err).Stringer("listing_id", listingID).Msg("failed to remove watchlist entries for listing")
			if done != nil {
				done(struct{}{}, err)
			}
			return
		}

		removed := c.idx.Load().removeListing(listingID)
		c.logger.Debug().Stringer("listing_id", listingID).Int("watchers", removed).Msg("listing removed from watchlists")
		if done != nil {
			done(struct{}{}, nil)
		}
	})
}

// SortByExpiry orders listings by ascending expiry, soonest first.
func SortByExpiry(listings []*model.Listing) {
	slices.SortStableFunc(listings, func(a, b *model.Listing) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
}
