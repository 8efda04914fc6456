package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/reviewloop/review-service/pkg/database"
	"go.uber.org/zap"
)

const cooldownKeyPrefix = "quota:cooldown:"

// Gate blocks all upstream calls for a tenant after a hard quota failure.
// State lives in Redis keyed per tenant with a TTL equal to the cooldown, so
// it survives a process restart and clears itself when the TTL lapses. The
// remaining time returned by Check is the single source of truth; clients
// only render a countdown from it.
type Gate struct {
	redis           *database.Redis
	defaultCooldown time.Duration
	logger          *zap.Logger
}

// NewGate creates a cooldown gate
func NewGate(redis *database.Redis, defaultCooldown time.Duration, logger *zap.Logger) *Gate {
	return &Gate{
		redis:           redis,
		defaultCooldown: defaultCooldown,
		logger:          logger,
	}
}

// Activate starts a cooldown for the tenant. A non-positive retryAfter falls
// back to the configured default.
func (g *Gate) Activate(ctx context.Context, tenantID string, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		retryAfter = g.defaultCooldown
	}

	key := cooldownKeyPrefix + tenantID
	if err := g.redis.Client.Set(ctx, key, "1", retryAfter).Err(); err != nil {
		return fmt.Errorf("failed to activate cooldown: %w", err)
	}

	g.logger.Warn("quota cooldown activated",
		zap.String("tenant_id", tenantID),
		zap.Duration("retry_after", retryAfter),
	)
	return nil
}

// Check returns the remaining cooldown for the tenant, or zero when no
// cooldown is active. Expiry is lazy: the key's TTL does the clearing.
func (g *Gate) Check(ctx context.Context, tenantID string) (time.Duration, error) {
	ttl, err := g.redis.Client.TTL(ctx, cooldownKeyPrefix+tenantID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// ClearAll removes every active cooldown. Operational recovery only.
func (g *Gate) ClearAll(ctx context.Context) (int, error) {
	var cleared int
	iter := g.redis.Client.Scan(ctx, 0, cooldownKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := g.redis.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return cleared, fmt.Errorf("failed to clear cooldown %s: %w", iter.Val(), err)
		}
		cleared++
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("failed to scan cooldowns: %w", err)
	}

	g.logger.Info("cleared active cooldowns", zap.Int("count", cleared))
	return cleared, nil
}
