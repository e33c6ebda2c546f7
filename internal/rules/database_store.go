package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// DatabaseRuleStore is a PostgreSQL-backed implementation of RuleStore
type DatabaseRuleStore struct {
	db *sql.DB
}

// NewDatabaseRuleStore creates a new database-backed rule store
func NewDatabaseRuleStore(db *sql.DB) *DatabaseRuleStore {
	return &DatabaseRuleStore{db: db}
}

const ruleColumns = `id, user_id, asset_id, name, is_active, status, config, created_at, updated_at`

// GetRule retrieves a rule by ID
func (s *DatabaseRuleStore) GetRule(ctx context.Context, id string) (*models.RuleRecord, error) {
	query := `SELECT ` + ruleColumns + ` FROM auto_scale_rules WHERE id = $1`

	rec, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rule: %w", err)
	}

	return rec, nil
}

// ListActiveRules retrieves all active rules ordered by creation time
func (s *DatabaseRuleStore) ListActiveRules(ctx context.Context) ([]*models.RuleRecord, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM auto_scale_rules
		WHERE is_active = true AND status = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, RuleStatusEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []*models.RuleRecord
	for rows.Next() {
		rec, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

// SaveRule inserts or replaces a rule
func (s *DatabaseRuleStore) SaveRule(ctx context.Context, rule *models.Rule) error {
	rec, err := EncodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO auto_scale_rules (id, user_id, asset_id, name, is_active, status, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    asset_id = EXCLUDED.asset_id,
		    name = EXCLUDED.name,
		    is_active = EXCLUDED.is_active,
		    status = EXCLUDED.status,
		    config = EXCLUDED.config,
		    updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.AssetID,
		rec.Name,
		rec.IsActive,
		rec.Status,
		string(rec.Config), // lib/pq sends []byte as bytea
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.RuleRecord, error) {
	var rec models.RuleRecord
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.AssetID,
		&rec.Name,
		&rec.IsActive,
		&rec.Status,
		&rec.Config,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
