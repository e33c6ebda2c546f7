package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// PostgresAssetRepository implements AssetRepository over the ad_assets table
type PostgresAssetRepository struct {
	db *sql.DB
}

// NewPostgresAssetRepository creates a new asset repository
func NewPostgresAssetRepository(db *sql.DB) *PostgresAssetRepository {
	return &PostgresAssetRepository{db: db}
}

// GetActiveAsset returns the asset when it is active and enabled, nil otherwise
func (r *PostgresAssetRepository) GetActiveAsset(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := r.GetAsset(ctx, id)
	if err != nil || asset == nil {
		return nil, err
	}
	if !asset.IsRunnable() {
		return nil, nil
	}
	return asset, nil
}

// GetAsset returns the asset regardless of its state, nil when absent
func (r *PostgresAssetRepository) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	query := `
		SELECT id, user_id, product_id, platform, external_id, asset_type, name,
		       budget, budget_type, is_active, status, updated_at
		FROM ad_assets
		WHERE id = $1
	`

	var asset models.Asset
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.UserID,
		&asset.ProductID,
		&asset.Platform,
		&asset.ExternalID,
		&asset.AssetType,
		&asset.Name,
		&asset.Budget,
		&asset.BudgetType,
		&asset.IsActive,
		&asset.Status,
		&asset.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}

	return &asset, nil
}

// UpdateBudget records the last known budget of an asset
func (r *PostgresAssetRepository) UpdateBudget(ctx context.Context, id string, budget float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ad_assets SET budget = $2, updated_at = NOW() WHERE id = $1`, id, budget)
	if err != nil {
		return fmt.Errorf("failed to update asset budget: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("asset not found: %s", id)
	}

	return nil
}
