package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// PostgresMetricStore implements MetricStore over the ad_metrics_daily and ad_metrics_hourly tables
type PostgresMetricStore struct {
	db *sql.DB
}

// NewPostgresMetricStore creates a new metric store
func NewPostgresMetricStore(db *sql.DB) *PostgresMetricStore {
	return &PostgresMetricStore{db: db}
}

// DailyAggregates sums complete daily rollups with metric_date in [from, to]
func (s *PostgresMetricStore) DailyAggregates(ctx context.Context, productID, assetID string, from, to time.Time) (*models.DailyAggregate, error) {
	query := `
		SELECT COALESCE(SUM(spend), 0),
		       COALESCE(SUM(impressions), 0),
		       COALESCE(SUM(reach), 0),
		       COALESCE(SUM(clicks), 0),
		       COALESCE(SUM(results), 0),
		       COUNT(*)
		FROM ad_metrics_daily
		WHERE product_id = $1
		  AND asset_id = $2
		  AND metric_date BETWEEN $3::date AND $4::date
		  AND is_complete = true
	`

	var agg models.DailyAggregate
	err := s.db.QueryRowContext(ctx, query, productID, assetID, dateParam(from), dateParam(to)).Scan(
		&agg.Spend,
		&agg.Impressions,
		&agg.Reach,
		&agg.Clicks,
		&agg.Results,
		&agg.CompleteDayCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}

	return &agg, nil
}

// LatestHourlySnapshot returns the latest snapshot of date with hour <= maxHour
func (s *PostgresMetricStore) LatestHourlySnapshot(ctx context.Context, productID, assetID string, date time.Time, maxHour int) (*models.HourlySnapshot, error) {
	query := `
		SELECT hour, spend, impressions, reach, clicks, results
		FROM ad_metrics_hourly
		WHERE product_id = $1
		  AND asset_id = $2
		  AND metric_date = $3::date
		  AND hour <= $4
		ORDER BY hour DESC
		LIMIT 1
	`

	snap := models.HourlySnapshot{Date: date}
	err := s.db.QueryRowContext(ctx, query, productID, assetID, dateParam(date), maxHour).Scan(
		&snap.Hour,
		&snap.Spend,
		&snap.Impressions,
		&snap.Reach,
		&snap.Clicks,
		&snap.Results,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly snapshot: %w", err)
	}

	return &snap, nil
}
