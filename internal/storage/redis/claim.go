package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/ilindan-dev/auction-watchlist/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ensure DeliveryClaimer implements the interface
var _ repo.DeliveryClaimer = (*DeliveryClaimer)(nil)

// releaseScript deletes the lease only if it still carries the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeliveryClaimer grants per-user delivery leases with SET NX PX.
type DeliveryClaimer struct {
	redis  *goredis.Client
	logger zerolog.Logger
}

// NewDeliveryClaimer creates a new instance of the DeliveryClaimer.
func NewDeliveryClaimer(redis *goredis.Client, logger *zerolog.Logger) *DeliveryClaimer {
	return &DeliveryClaimer{
		redis:  redis,
		logger: logger.With().Str("layer", "redis_delivery_claimer").Logger(),
	}
}

// Claim takes the user's lease for ttl. ok is false when another holder has it.
func (c *DeliveryClaimer) Claim(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, bool, error) {
	key := keybuilder.RedisDeliveryClaimKeyBuild(userID)
	token := uuid.NewString()

	ok, err := c.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to claim delivery")
		return "", false, fmt.Errorf("redis: claim failed: %w", err)
	}
	if !ok {
		c.logger.Debug().Str("key", key).Msg("delivery already claimed")
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if it is still held with token. An expired or
// foreign lease is left alone.
func (c *DeliveryClaimer) Release(ctx context.Context, userID uuid.UUID, token string) error {
	key := keybuilder.RedisDeliveryClaimKeyBuild(userID)

	if err := releaseScript.Run(ctx, c.redis, []string{key}, token).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to release delivery claim")
		return fmt.Errorf("redis: release failed: %w", err)
	}
	return nil
}
