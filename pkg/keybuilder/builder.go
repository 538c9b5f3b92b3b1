package keybuilder

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	Redis         string = "redis"
	DeliveryClaim string = "delivery_claim"
)

// RedisDeliveryClaimKeyBuild returns the key of a user's notification delivery lease.
func RedisDeliveryClaimKeyBuild(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", Redis, DeliveryClaim, userID)
}
