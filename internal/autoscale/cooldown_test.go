package autoscale

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
)

var cooldownBase = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func executedRecord(id string, at time.Time, success bool, types ...models.ActionType) *models.HistoryRecord {
	return &models.HistoryRecord{
		ID:                  id,
		RuleID:              "rule-1",
		AssetID:             "asset-1",
		ActionExecuted:      true,
		Success:             success,
		ExecutedActionTypes: types,
		CreatedAt:           at,
	}
}

func TestCooldownGate_NoHistoryAllows(t *testing.T) {
	gate := NewCooldownGate(&storage.MockHistoryStore{})

	for _, tp := range []models.TimePeriod{models.PeriodEverytime, models.PeriodOnce, models.PeriodDaily, models.PeriodEvery6h} {
		d, err := gate.Check(context.Background(), "asset-1", &models.Action{Type: models.ActionPause, TimePeriod: tp}, cooldownBase)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "period %s", tp)
	}
}

func TestCooldownGate_OnceBlocksForever(t *testing.T) {
	history := &storage.MockHistoryStore{}
	require.NoError(t, history.Append(context.Background(),
		executedRecord("h1", cooldownBase, true, models.ActionIncreaseBudget)))
	gate := NewCooldownGate(history)
	action := &models.Action{Type: models.ActionIncreaseBudget, TimePeriod: models.PeriodOnce}

	for _, elapsed := range []time.Duration{time.Minute, 48 * time.Hour, 365 * 24 * time.Hour} {
		d, err := gate.Check(context.Background(), "asset-1", action, cooldownBase.Add(elapsed))
		require.NoError(t, err)
		assert.False(t, d.Allowed, "elapsed %s", elapsed)
		assert.Contains(t, d.Reason, "already executed once")
	}
}

func TestCooldownGate_Periods(t *testing.T) {
	tests := []struct {
		period  models.TimePeriod
		elapsed time.Duration
		allowed bool
	}{
		{models.PeriodDaily, 23 * time.Hour, false},
		{models.PeriodDaily, 24 * time.Hour, false},
		{models.PeriodDaily, 25 * time.Hour, true},
		{models.PeriodEvery2h, 90 * time.Minute, false},
		{models.PeriodEvery2h, 2*time.Hour + time.Second, true},
		{models.PeriodEvery3h, 3 * time.Hour, false},
		{models.PeriodEvery3h, 4 * time.Hour, true},
		{models.PeriodEvery6h, 5 * time.Hour, false},
		{models.PeriodEvery6h, 7 * time.Hour, true},
		{models.PeriodEverytime, 0, true},
	}

	history := &storage.MockHistoryStore{}
	require.NoError(t, history.Append(context.Background(),
		executedRecord("h1", cooldownBase, true, models.ActionDecreaseBudget)))
	gate := NewCooldownGate(history)

	for _, tt := range tests {
		t.Run(string(tt.period)+"/"+tt.elapsed.String(), func(t *testing.T) {
			action := &models.Action{Type: models.ActionDecreaseBudget, TimePeriod: tt.period}
			d, err := gate.Check(context.Background(), "asset-1", action, cooldownBase.Add(tt.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
		})
	}
}

func TestCooldownGate_IgnoresFailuresAndOtherActions(t *testing.T) {
	history := &storage.MockHistoryStore{}
	ctx := context.Background()
	require.NoError(t, history.Append(ctx, executedRecord("h1", cooldownBase, false, models.ActionIncreaseBudget)))
	require.NoError(t, history.Append(ctx, executedRecord("h2", cooldownBase, true, models.ActionPause)))
	gate := NewCooldownGate(history)

	d, err := gate.Check(ctx, "asset-1", &models.Action{Type: models.ActionIncreaseBudget, TimePeriod: models.PeriodOnce}, cooldownBase)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = gate.Check(ctx, "asset-2", &models.Action{Type: models.ActionPause, TimePeriod: models.PeriodOnce}, cooldownBase)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "history of another asset must not count")
}

func TestCooldownGate_LookupError(t *testing.T) {
	gate := NewCooldownGate(&storage.MockHistoryStore{LookupErr: errors.New("db down")})

	_, err := gate.Check(context.Background(), "asset-1", &models.Action{Type: models.ActionPause, TimePeriod: models.PeriodDaily}, cooldownBase)
	assert.Error(t, err)

	d, err := gate.Check(context.Background(), "asset-1", &models.Action{Type: models.ActionPause, TimePeriod: models.PeriodEverytime}, cooldownBase)
	require.NoError(t, err, "everytime never touches history")
	assert.True(t, d.Allowed)
}
