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

// Ensure ListingRepository implements the interface
var _ repo.ListingRepository = (*ListingRepository)(nil)

// ListingRepository stores catalog listings in PostgreSQL.
type ListingRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewListingRepository creates a new instance of the ListingRepository
func NewListingRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *ListingRepository {
	return &ListingRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_listing_repository").Logger(),
	}
}

// Save persists a new listing.
func (r *ListingRepository) Save(ctx context.Context, l *model.Listing) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO listings (id, seller_id, title, price, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.SellerID, l.Title, l.Price, l.ExpiresAt, l.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repo.ErrDuplicateRecord
		}
		r.logger.Err(err).Stringer("id", l.ID).Msg("cannot save listing")
		return fmt.Errorf("postgres: SaveListing failed: %w", err)
	}
	return nil
}

// LoadActive returns every listing that has not been ended, soonest expiry first.
func (r *ListingRepository) LoadActive(ctx context.Context) ([]*model.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, seller_id, title, price, expires_at, created_at
		 FROM listings
		 WHERE ended_at IS NULL
		 ORDER BY expires_at`,
	)
	if err != nil {
		r.logger.Err(err).Msg("cannot load listings")
		return nil, fmt.Errorf("postgres: LoadActiveListings failed: %w", err)
	}
	defer rows.Close()

	var out []*model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Price, &l.ExpiresAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: LoadActiveListings scan failed: %w", err)
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: LoadActiveListings failed: %w", err)
	}
	return out, nil
}

// MarkEnded records that the listing left the catalog. Ending an ended listing is a no-op.
func (r *ListingRepository) MarkEnded(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE listings SET ended_at = COALESCE(ended_at, NOW()) WHERE id = $1`,
		id,
	)
	if err != nil {
		r.logger.Err(err).Stringer("id", id).Msg("cannot mark listing ended")
		return fmt.Errorf("postgres: MarkListingEnded failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().Stringer("id", id).Msg("tried to end non-existent listing")
		return repo.ErrNotFound
	}
	return nil
}
