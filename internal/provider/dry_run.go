package provider

import (
	"context"
	"sync"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// DryRunProvider never calls a platform. Budgets start from the stored asset row
// and intended changes are logged and kept in memory.
type DryRunProvider struct {
	asset  models.Asset
	budget float64
	paused bool
	mu     sync.Mutex
}

// NewDryRunProvider creates a dry-run provider for one asset
func NewDryRunProvider(asset *models.Asset) *DryRunProvider {
	return &DryRunProvider{
		asset:  *asset,
		budget: asset.Budget,
	}
}

func (p *DryRunProvider) GetBudget(ctx context.Context, assetID, assetType string) (*BudgetInfo, error) {
	if err := checkBudgetAsset(assetType); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	budgetType := p.asset.BudgetType
	if budgetType == "" {
		budgetType = BudgetDaily
	}
	return &BudgetInfo{Budget: p.budget, BudgetType: budgetType}, nil
}

func (p *DryRunProvider) UpdateBudget(ctx context.Context, assetID, assetType string, newBudget float64, budgetType string) error {
	if err := checkBudgetAsset(assetType); err != nil {
		return err
	}

	p.mu.Lock()
	before := p.budget
	p.budget = newBudget
	p.mu.Unlock()

	logger.Info("Dry run: budget update skipped",
		logger.String("asset_id", p.asset.ID),
		logger.String("external_id", assetID),
		logger.String("platform", p.asset.Platform),
		logger.Float64("before", before),
		logger.Float64("after", newBudget),
		logger.String("budget_type", budgetType),
	)
	return nil
}

func (p *DryRunProvider) PauseAsset(ctx context.Context, assetID, assetType string) error {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()

	logger.Info("Dry run: pause skipped",
		logger.String("asset_id", p.asset.ID),
		logger.String("external_id", assetID),
		logger.String("platform", p.asset.Platform),
	)
	return nil
}

// Paused reports whether PauseAsset was called
func (p *DryRunProvider) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}
