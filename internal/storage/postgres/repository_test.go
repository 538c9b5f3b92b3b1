package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a disposable database: POSTGRES_TEST_DSN=postgres://... go test ./internal/storage/postgres
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	logger := zerolog.Nop()
	ctx := context.Background()
	pool, err := NewPool(ctx, config.PostgresConfig{DSN: dsn}, &logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, &logger))
	return pool
}

func TestWatchRepository(t *testing.T) {
	pool := testPool(t)
	logger := zerolog.Nop()
	r := NewWatchRepository(pool, &logger)
	ctx := context.Background()

	user, other := uuid.New(), uuid.New()
	l1, l2 := uuid.New(), uuid.New()
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM watch_entries WHERE user_id = ANY($1)`, []uuid.UUID{user, other})
	})

	added, err := r.Add(ctx, user, l1)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Add(ctx, user, l1)
	require.NoError(t, err)
	assert.False(t, added, "duplicate pair is rejected")

	_, err = r.Add(ctx, user, l2)
	require.NoError(t, err)
	_, err = r.Add(ctx, other, l1)
	require.NoError(t, err)

	all, err := r.LoadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{l1, l2}, all[user])
	assert.ElementsMatch(t, []uuid.UUID{l1}, all[other])

	removed, err := r.Remove(ctx, user, l2)
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, r.RemoveForListing(ctx, l1))
	all, err = r.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all[user])
	assert.Empty(t, all[other])
}

func TestNotificationRepository(t *testing.T) {
	pool := testPool(t)
	logger := zerolog.Nop()
	r := NewNotificationRepository(pool, &logger)
	ctx := context.Background()
	user := uuid.New()

	var ids []uuid.UUID
	for i, key := range []string{"a", "b", "c"} {
		n, err := model.NewQueuedNotification(user, key, map[string]string{"i": key})
		require.NoError(t, err)
		n.CreatedAt = time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)
		require.NoError(t, r.Insert(ctx, n))
		ids = append(ids, n.ID)
	}

	list, err := r.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].MessageKey)
	assert.Equal(t, "c", list[2].MessageKey)
	assert.Equal(t, map[string]string{"i": "b"}, list[1].PlaceholderValues())

	require.NoError(t, r.Delete(ctx, ids[:2]))
	list, err = r.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[2], list[0].ID)

	require.NoError(t, r.Delete(ctx, ids[2:]))
	require.NoError(t, r.Delete(ctx, nil))
}

func TestListingRepository(t *testing.T) {
	pool := testPool(t)
	logger := zerolog.Nop()
	r := NewListingRepository(pool, &logger)
	ctx := context.Background()

	l := model.NewListing(uuid.New(), "Enchanted Bow", 1500, time.Hour)
	require.NoError(t, r.Save(ctx, l))
	assert.ErrorIs(t, r.Save(ctx, l), repo.ErrDuplicateRecord)

	active, err := r.LoadActive(ctx)
	require.NoError(t, err)
	assert.True(t, containsListing(active, l.ID))

	require.NoError(t, r.MarkEnded(ctx, l.ID))
	active, err = r.LoadActive(ctx)
	require.NoError(t, err)
	assert.False(t, containsListing(active, l.ID))

	assert.ErrorIs(t, r.MarkEnded(ctx, uuid.New()), repo.ErrNotFound)
}

func containsListing(listings []*model.Listing, id uuid.UUID) bool {
	for _, l := range listings {
		if l.ID == id {
			return true
		}
	}
	return false
}
