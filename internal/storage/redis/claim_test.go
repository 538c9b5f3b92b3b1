package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClaimer(t *testing.T) (*DeliveryClaimer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	return NewDeliveryClaimer(client, &logger), mr
}

func TestDeliveryClaimer_ClaimAndRelease(t *testing.T) {
	c, mr := newTestClaimer(t)
	ctx := context.Background()
	user := uuid.New()

	token, ok, err := c.Claim(ctx, user, 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)
	assert.True(t, mr.Exists(keybuilder.RedisDeliveryClaimKeyBuild(user)))

	_, ok, err = c.Claim(ctx, user, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second claim is refused while held")

	other, ok, err := c.Claim(ctx, uuid.New(), 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "leases are per user")
	assert.NotEqual(t, token, other)

	require.NoError(t, c.Release(ctx, user, token))
	assert.False(t, mr.Exists(keybuilder.RedisDeliveryClaimKeyBuild(user)))

	_, ok, err = c.Claim(ctx, user, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeliveryClaimer_ReleaseKeepsForeignLease(t *testing.T) {
	c, mr := newTestClaimer(t)
	ctx := context.Background()
	user := uuid.New()

	_, ok, err := c.Claim(ctx, user, 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Release(ctx, user, "someone-else"))
	assert.True(t, mr.Exists(keybuilder.RedisDeliveryClaimKeyBuild(user)))
}

func TestDeliveryClaimer_LeaseExpires(t *testing.T) {
	c, mr := newTestClaimer(t)
	ctx := context.Background()
	user := uuid.New()

	_, ok, err := c.Claim(ctx, user, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = c.Claim(ctx, user, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeliveryClaimer_ServerDown(t *testing.T) {
	c, mr := newTestClaimer(t)
	mr.Close()

	_, _, err := c.Claim(context.Background(), uuid.New(), time.Second)
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := zerolog.Nop()

	client, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()}, &logger)
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()}, &logger)
	assert.Error(t, err)
}
