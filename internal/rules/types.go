package rules

import (
	"context"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// RuleStore defines the read side the engine needs for auto-scaling rules.
// Records are returned with their config still encoded; DecodeRule validates it.
type RuleStore interface {
	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, id string) (*models.RuleRecord, error)

	// ListActiveRules retrieves every rule with is_active set and status enabled
	ListActiveRules(ctx context.Context) ([]*models.RuleRecord, error)
}

// RuleStatusEnabled is the status value of a rule the engine evaluates
const RuleStatusEnabled = 1

// IsActive reports whether a stored rule should be evaluated
func IsActive(rec *models.RuleRecord) bool {
	return rec != nil && rec.IsActive && rec.Status == RuleStatusEnabled
}
