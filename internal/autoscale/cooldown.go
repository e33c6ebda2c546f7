package autoscale

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// CooldownDecision is the outcome of a cooldown check
type CooldownDecision struct {
	Allowed       bool
	LastExecution *time.Time
	Reason        string
}

// CooldownGate throttles actions by the last successful execution recorded in history
type CooldownGate struct {
	history storage.HistoryStore
}

// NewCooldownGate creates a new cooldown gate
func NewCooldownGate(history storage.HistoryStore) *CooldownGate {
	return &CooldownGate{history: history}
}

// CooldownPeriod returns the minimum gap a time period enforces.
// The second value is false for everytime and once, which are not duration based.
func CooldownPeriod(tp models.TimePeriod) (time.Duration, bool) {
	switch tp {
	case models.PeriodDaily:
		return 24 * time.Hour, true
	case models.PeriodEvery2h:
		return 2 * time.Hour, true
	case models.PeriodEvery3h:
		return 3 * time.Hour, true
	case models.PeriodEvery6h:
		return 6 * time.Hour, true
	default:
		return 0, false
	}
}

// Check decides whether an action may run on an asset at now
func (g *CooldownGate) Check(ctx context.Context, assetID string, action *models.Action, now time.Time) (*CooldownDecision, error) {
	if action.TimePeriod == models.PeriodEverytime || action.TimePeriod == "" {
		return &CooldownDecision{Allowed: true}, nil
	}

	last, err := g.history.LastSuccessfulExecution(ctx, assetID, action.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to look up last execution: %w", err)
	}
	if last == nil {
		return &CooldownDecision{Allowed: true}, nil
	}

	decision := &CooldownDecision{LastExecution: last}

	if action.TimePeriod == models.PeriodOnce {
		decision.Reason = fmt.Sprintf("already executed once at %s", last.UTC().Format(time.RFC3339))
		return decision, nil
	}

	period, ok := CooldownPeriod(action.TimePeriod)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported time period %q", models.ErrConfiguration, action.TimePeriod)
	}

	elapsed := now.Sub(*last)
	if elapsed > period {
		decision.Allowed = true
		return decision, nil
	}

	decision.Reason = fmt.Sprintf("cooldown %s active, last executed at %s",
		action.TimePeriod, last.UTC().Format(time.RFC3339))

	logger.Debug("Action in cooldown period",
		logger.String("asset_id", assetID),
		logger.String("action_type", string(action.Type)),
		logger.Duration("elapsed", elapsed),
		logger.Duration("period", period),
	)

	return decision, nil
}
