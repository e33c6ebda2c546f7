package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

func TestRegistry_ComputeAll(t *testing.T) {
	registry := NewRegistry()

	result := registry.ComputeAll(&WindowTotals{
		AdTotals: models.AdTotals{Spend: 50, Impressions: 4000, Reach: 3100, Clicks: 120, Results: 6},
		Revenue:  135,
	})

	assert.Equal(t, 50.0, result["spend"])
	assert.Equal(t, 3100.0, result["reach"])
	assert.Equal(t, 135.0, result["revenue"])
	assert.Equal(t, 3.0, result["ctr"])  // 120/4000*100
	assert.Equal(t, 0.42, result["cpc"]) // 50/120 = 0.41666
	assert.Equal(t, 12.5, result["cpm"]) // 50/4000*1000
	assert.Equal(t, 2.7, result["roas"]) // 135/50
	assert.Equal(t, 85.0, result["profit"])
}

func TestRegistry_ZeroDenominators(t *testing.T) {
	registry := NewRegistry()

	totals := []models.AdTotals{
		{},
		{Spend: 10},
		{Impressions: 500},
		{Clicks: 3},
	}

	for _, tt := range totals {
		result := registry.ComputeAll(&WindowTotals{AdTotals: tt})
		for name, v := range result {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s is not finite for %+v", name, tt)
		}
		if tt.Clicks == 0 {
			assert.Zero(t, result["cpc"])
		}
		if tt.Impressions == 0 {
			assert.Zero(t, result["ctr"])
			assert.Zero(t, result["cpm"])
		}
		if tt.Spend == 0 {
			assert.Zero(t, result["roas"])
		}
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	require.Error(t, registry.Register(nil))
	require.Error(t, registry.Register(NewRawComputer("spend", spendOf)), "duplicate names are rejected")
	require.NoError(t, registry.Register(NewRatioComputer("cost_per_result", spendOf, resultsOf, 1)))

	names := registry.Names()
	assert.Equal(t, "spend", names[0])
	assert.Equal(t, "cost_per_result", names[len(names)-1])

	result := registry.ComputeAll(&WindowTotals{AdTotals: models.AdTotals{Spend: 10, Results: 4}})
	assert.Equal(t, 2.5, result["cost_per_result"])
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.5, Round2(0.5))
	assert.Equal(t, 1.24, Round2(1.2449))
	assert.Equal(t, 1.25, Round2(1.245))
	assert.Equal(t, -10.0, Round2(-10.0))
}
