package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

const timezoneKeyPrefix = "autoscale:tz:"

// CachedTimezoneLookup caches bot timezones in Redis in front of another lookup.
// Cache failures fall through to the underlying lookup.
type CachedTimezoneLookup struct {
	next  TimezoneLookup
	redis RedisClient
	ttl   time.Duration
}

// NewCachedTimezoneLookup wraps next with a Redis cache
func NewCachedTimezoneLookup(next TimezoneLookup, redis RedisClient, ttl time.Duration) *CachedTimezoneLookup {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedTimezoneLookup{next: next, redis: redis, ttl: ttl}
}

// BotTimezone returns the cached zone of the product's bot, loading it on a miss
func (c *CachedTimezoneLookup) BotTimezone(ctx context.Context, productID string) (string, error) {
	key := timezoneKeyPrefix + productID

	var cached string
	if err := c.redis.GetJSON(ctx, key, &cached); err != nil {
		logger.Debug("Timezone cache read failed",
			logger.ErrorField(err),
			logger.String("product_id", productID),
		)
	} else if cached != "" {
		return cached, nil
	}

	tz, err := c.next.BotTimezone(ctx, productID)
	if err != nil {
		return "", err
	}

	if tz != "" {
		if err := c.redis.Set(ctx, key, tz, c.ttl); err != nil {
			logger.Debug("Timezone cache write failed",
				logger.ErrorField(err),
				logger.String("product_id", productID),
			)
		}
	}

	return tz, nil
}
