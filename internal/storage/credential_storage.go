package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// PostgresCredentialStore implements CredentialStore over the ad_credentials table
type PostgresCredentialStore struct {
	db *sql.DB
}

// NewPostgresCredentialStore creates a new credential store
func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

// GetCredential returns the credential of a user on a platform, nil when absent
func (s *PostgresCredentialStore) GetCredential(ctx context.Context, platform, userID string) (*models.Credential, error) {
	query := `
		SELECT platform, user_id, access_token, account_id, extra
		FROM ad_credentials
		WHERE platform = $1 AND user_id = $2
	`

	var cred models.Credential
	var extraJSON sql.NullString
	err := s.db.QueryRowContext(ctx, query, platform, userID).Scan(
		&cred.Platform,
		&cred.UserID,
		&cred.AccessToken,
		&cred.AccountID,
		&extraJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	// Unmarshal extra settings if present
	if extraJSON.Valid && extraJSON.String != "" {
		if err := json.Unmarshal([]byte(extraJSON.String), &cred.Extra); err != nil {
			logger.Warn("Failed to unmarshal credential settings",
				logger.ErrorField(err),
				logger.String("platform", platform),
				logger.String("user_id", userID),
			)
		}
	}

	return &cred, nil
}
