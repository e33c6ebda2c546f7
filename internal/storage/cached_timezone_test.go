package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedTimezoneLookup_MissThenHit(t *testing.T) {
	next := &MockTimezoneLookup{Zones: map[string]string{"prod-1": "Europe/Berlin"}}
	redis := NewMockRedisClient()
	lookup := NewCachedTimezoneLookup(next, redis, 0)

	tz, err := lookup.BotTimezone(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", tz)
	assert.Equal(t, 1, next.Calls)
	assert.Equal(t, `"Europe/Berlin"`, redis.Data["autoscale:tz:prod-1"])

	tz, err = lookup.BotTimezone(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", tz)
	assert.Equal(t, 1, next.Calls, "second lookup should be served from cache")
}

func TestCachedTimezoneLookup_EmptyZoneNotCached(t *testing.T) {
	next := &MockTimezoneLookup{Zones: map[string]string{}}
	redis := NewMockRedisClient()
	lookup := NewCachedTimezoneLookup(next, redis, 0)

	tz, err := lookup.BotTimezone(context.Background(), "prod-2")
	require.NoError(t, err)
	assert.Empty(t, tz)
	assert.Empty(t, redis.Data)
}

func TestCachedTimezoneLookup_CacheFailureFallsThrough(t *testing.T) {
	next := &MockTimezoneLookup{Zones: map[string]string{"prod-1": "Asia/Tokyo"}}
	redis := NewMockRedisClient()
	redis.GetErr = errors.New("connection refused")
	redis.SetErr = errors.New("connection refused")
	lookup := NewCachedTimezoneLookup(next, redis, 0)

	tz, err := lookup.BotTimezone(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", tz)
}

func TestCachedTimezoneLookup_LookupError(t *testing.T) {
	next := &MockTimezoneLookup{Err: errors.New("db down")}
	lookup := NewCachedTimezoneLookup(next, NewMockRedisClient(), 0)

	_, err := lookup.BotTimezone(context.Background(), "prod-1")
	assert.Error(t, err)
}
