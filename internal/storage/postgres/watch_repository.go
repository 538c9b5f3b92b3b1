package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Ensure WatchRepository implements the interface
var _ repo.WatchRepository = (*WatchRepository)(nil)

// WatchRepository stores (user, listing) watch entries in PostgreSQL.
type WatchRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWatchRepository creates a new instance of the WatchRepository
func NewWatchRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *WatchRepository {
	return &WatchRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_watch_repository").Logger(),
	}
}

// LoadAll returns every watch entry grouped by user.
func (r *WatchRepository) LoadAll(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, listing_id FROM watch_entries`)
	if err != nil {
		r.logger.Err(err).Msg("cannot load watch entries")
		return nil, fmt.Errorf("postgres: LoadWatchEntries failed: %w", err)
	}
	defer rows.Close()

	entries := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var userID, listingID uuid.UUID
		if err := rows.Scan(&userID, &listingID); err != nil {
			return nil, fmt.Errorf("postgres: LoadWatchEntries scan failed: %w", err)
		}
		entries[userID] = append(entries[userID], listingID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: LoadWatchEntries failed: %w", err)
	}
	return entries, nil
}

// Add inserts a watch entry. A unique violation means the pair already exists and yields false.
func (r *WatchRepository) Add(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO watch_entries (user_id, listing_id) VALUES ($1, $2)`,
		userID, listingID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		r.logger.Err(err).Stringer("user_id", userID).Stringer("listing_id", listingID).Msg("cannot add watch entry")
		return false, fmt.Errorf("postgres: AddWatchEntry failed: %w", err)
	}
	return true, nil
}

// Remove deletes a watch entry. Deleting an absent pair still succeeds.
func (r *WatchRepository) Remove(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM watch_entries WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID,
	)
	if err != nil {
		r.logger.Err(err).Stringer("user_id", userID).Stringer("listing_id", listingID).Msg("cannot remove watch entry")
		return false, fmt.Errorf("postgres: RemoveWatchEntry failed: %w", err)
	}
	return true, nil
}

// RemoveForListing deletes every watch entry of the listing.
func (r *WatchRepository) RemoveForListing(ctx context.Context, listingID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM watch_entries WHERE listing_id = $1`, listingID)
	if err != nil {
		r.logger.Err(err).Stringer("listing_id", listingID).Msg("cannot remove watch entries for listing")
		return fmt.Errorf("postgres: RemoveWatchEntriesForListing failed: %w", err)
	}
	r.logger.Debug().Stringer("listing_id", listingID).Int64("rows", tag.RowsAffected()).Msg("watch entries removed")
	return nil
}
