package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// AssetRepository looks up ad assets
type AssetRepository interface {
	// GetActiveAsset returns the asset when it exists and is runnable, nil otherwise
	GetActiveAsset(ctx context.Context, id string) (*models.Asset, error)

	// GetAsset returns the asset regardless of its state, nil when absent
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
}

// MetricStore reads ingested ad delivery metrics
type MetricStore interface {
	// DailyAggregates sums the daily rollups of an asset for days in [from, to]
	DailyAggregates(ctx context.Context, productID, assetID string, from, to time.Time) (*models.DailyAggregate, error)

	// LatestHourlySnapshot returns the most recent day-cumulative snapshot of date
	// with hour <= maxHour, nil when there is none
	LatestHourlySnapshot(ctx context.Context, productID, assetID string, date time.Time, maxHour int) (*models.HourlySnapshot, error)
}

// RevenueCalculator computes revenue from the sales ledger
type RevenueCalculator interface {
	// ConfirmedRevenue sums confirmed sale amounts of a product with from <= confirmed_at < to
	ConfirmedRevenue(ctx context.Context, productID string, from, to time.Time) (float64, error)
}

// ProductRepository mutates products linked to assets
type ProductRepository interface {
	// Disable switches the product's active flag off. Returns false when the product does not exist.
	Disable(ctx context.Context, productID string) (bool, error)
}

// HistoryStore persists the auto-scale audit trail
type HistoryStore interface {
	// Append writes one immutable history record
	Append(ctx context.Context, record *models.HistoryRecord) error

	// LastSuccessfulExecution returns the time of the most recent record for the asset where
	// actionType executed successfully, nil when there is none
	LastSuccessfulExecution(ctx context.Context, assetID string, actionType models.ActionType) (*time.Time, error)

	// List returns history records, newest first
	List(ctx context.Context, filter HistoryFilter) ([]*models.HistoryRecord, error)
}

// HistoryFilter defines filtering options for history queries
type HistoryFilter struct {
	UserID    string
	RuleID    string
	AssetID   string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// TimezoneLookup resolves the timezone configured on the bot that owns a product
type TimezoneLookup interface {
	// BotTimezone returns an IANA zone name, empty when none is configured
	BotTimezone(ctx context.Context, productID string) (string, error)
}

// CredentialStore reads stored ad platform credentials
type CredentialStore interface {
	// GetCredential returns the credential of a user on a platform, nil when absent
	GetCredential(ctx context.Context, platform, userID string) (*models.Credential, error)
}

// RedisClient defines the Redis operations the engine uses
type RedisClient interface {
	// Stream operations
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error

	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// Close closes the Redis connection
	Close() error
}
