package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaleStatusConfirmed is the sales ledger status counted as revenue
const SaleStatusConfirmed = "confirmed"

// PostgresRevenueCalculator implements RevenueCalculator over the sales table
type PostgresRevenueCalculator struct {
	db *sql.DB
}

// NewPostgresRevenueCalculator creates a new revenue calculator
func NewPostgresRevenueCalculator(db *sql.DB) *PostgresRevenueCalculator {
	return &PostgresRevenueCalculator{db: db}
}

// ConfirmedRevenue sums billed amounts of confirmed sales with from <= confirmed_at < to
func (c *PostgresRevenueCalculator) ConfirmedRevenue(ctx context.Context, productID string, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM sales
		WHERE product_id = $1
		  AND status = $2
		  AND confirmed_at >= $3
		  AND confirmed_at < $4
	`

	var total float64
	if err := c.db.QueryRowContext(ctx, query, productID, SaleStatusConfirmed, from, to).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query confirmed revenue: %w", err)
	}

	return total, nil
}
