package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresProductRepository implements ProductRepository and TimezoneLookup over the products and bots tables
type PostgresProductRepository struct {
	db *sql.DB
}

// NewPostgresProductRepository creates a new product repository
func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

// Disable switches the product's active flag off. Returns false when the product does not exist.
func (r *PostgresProductRepository) Disable(ctx context.Context, productID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1`, productID)
	if err != nil {
		return false, fmt.Errorf("failed to disable product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// BotTimezone returns the timezone of the bot selling the product, empty when none is set
func (r *PostgresProductRepository) BotTimezone(ctx context.Context, productID string) (string, error) {
	query := `
		SELECT COALESCE(b.timezone, '')
		FROM products p
		LEFT JOIN bots b ON b.id = p.bot_id
		WHERE p.id = $1
	`

	var tz string
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query bot timezone: %w", err)
	}

	return tz, nil
}
