package autoscale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/provider"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

const (
	// MinBudget is the floor applied to decreases without a limit and to adjust_to_spend
	MinBudget = 1.0
	// NegligibleDelta is the smallest budget change worth sending to a platform
	NegligibleDelta = 0.01
)

// ProviderResolver returns the ad provider controlling an asset
type ProviderResolver interface {
	ForAsset(ctx context.Context, asset *models.Asset) (provider.AdProvider, error)
}

// ExecutionContext is what actions of a selected block run against
type ExecutionContext struct {
	Asset   *models.Asset
	Metrics models.MetricSnapshot
	Now     time.Time
	// TodaySpend reads today's spend when the conditions did not resolve it.
	// The second result is false when no snapshot exists yet.
	TodaySpend func(ctx context.Context) (float64, bool, error)
}

// Executor dispatches actions to ad providers and product storage
type Executor struct {
	providers ProviderResolver
	products  storage.ProductRepository
	cooldown  *CooldownGate
	timeout   time.Duration
}

// NewExecutor creates a new action executor. timeout bounds every provider and storage call.
func NewExecutor(providers ProviderResolver, products storage.ProductRepository, cooldown *CooldownGate, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		providers: providers,
		products:  products,
		cooldown:  cooldown,
		timeout:   timeout,
	}
}

// ExecuteAll runs a block's actions in order. A failing action never stops the next one.
// The provider is resolved at most once, on first use.
func (e *Executor) ExecuteAll(ctx context.Context, ec *ExecutionContext, actions []models.Action) []models.ActionResult {
	results := make([]models.ActionResult, 0, len(actions))

	var (
		adProvider  provider.AdProvider
		providerErr error
		resolved    bool
	)
	getProvider := func() (provider.AdProvider, error) {
		if !resolved {
			resolved = true
			adProvider, providerErr = e.providers.ForAsset(ctx, ec.Asset)
		}
		return adProvider, providerErr
	}

	for i := range actions {
		results = append(results, e.execute(ctx, ec, &actions[i], getProvider))
	}
	return results
}

// execute runs one action behind its cooldown gate and converts panics into failed results
func (e *Executor) execute(ctx context.Context, ec *ExecutionContext, action *models.Action, getProvider func() (provider.AdProvider, error)) (result models.ActionResult) {
	result.ActionType = action.Type

	defer func() {
		if p := recover(); p != nil {
			result = failedResult(action.Type, fmt.Errorf("%w: panic: %v", models.ErrActionExecution, p))
			logger.Error("Recovered from panic in action",
				logger.String("asset_id", ec.Asset.ID),
				logger.String("action_type", string(action.Type)),
				logger.Any("panic", p),
			)
		}
		actionsTotal.WithLabelValues(string(action.Type), actionStatus(&result)).Inc()
	}()

	decision, err := e.cooldown.Check(ctx, ec.Asset.ID, action, ec.Now)
	if err != nil {
		return failedResult(action.Type, err)
	}
	if !decision.Allowed {
		return models.ActionResult{
			ActionType: action.Type,
			Skipped:    true,
			Message:    decision.Reason,
		}
	}

	switch action.Type {
	case models.ActionIncreaseBudget, models.ActionDecreaseBudget:
		result = e.changeBudget(ctx, ec, action, getProvider)
	case models.ActionAdjustToSpend:
		result = e.adjustToSpend(ctx, ec, action, getProvider)
	case models.ActionPause:
		result = e.pause(ctx, ec, getProvider)
	case models.ActionDisableProduct:
		result = e.disableProduct(ctx, ec)
	default:
		result = failedResult(action.Type, fmt.Errorf("%w: unsupported action type %q", models.ErrConfiguration, action.Type))
	}
	result.ActionType = action.Type

	if result.Success {
		logger.Info("Action executed",
			logger.String("asset_id", ec.Asset.ID),
			logger.String("action_type", string(action.Type)),
			logger.Bool("changed", result.Changed),
			logger.String("message", result.Message),
		)
	} else {
		logger.Warn("Action failed",
			logger.String("asset_id", ec.Asset.ID),
			logger.String("action_type", string(action.Type)),
			logger.String("error", result.Error),
		)
	}

	return result
}

func (e *Executor) changeBudget(ctx context.Context, ec *ExecutionContext, action *models.Action, getProvider func() (provider.AdProvider, error)) models.ActionResult {
	p, err := getProvider()
	if err != nil {
		return failedResult(action.Type, err)
	}

	info, err := e.getBudget(ctx, p, ec.Asset)
	if err != nil {
		return failedResult(action.Type, err)
	}

	target := ComputeBudgetChange(info.Budget, action)
	return e.applyBudget(ctx, p, ec.Asset, action.Type, info, target)
}

func (e *Executor) adjustToSpend(ctx context.Context, ec *ExecutionContext, action *models.Action, getProvider func() (provider.AdProvider, error)) models.ActionResult {
	spend, err := e.todaySpend(ctx, ec)
	if err != nil {
		return failedResult(action.Type, err)
	}

	p, err := getProvider()
	if err != nil {
		return failedResult(action.Type, err)
	}

	info, err := e.getBudget(ctx, p, ec.Asset)
	if err != nil {
		return failedResult(action.Type, err)
	}

	target := ComputeSpendTarget(spend, action)
	return e.applyBudget(ctx, p, ec.Asset, action.Type, info, target)
}

// todaySpend prefers the resolved spend_today and falls back to the context's lookup
func (e *Executor) todaySpend(ctx context.Context, ec *ExecutionContext) (float64, error) {
	key := string(rules.ResolveKey(rules.MetricSpend, models.RangeToday))
	if spend, ok := ec.Metrics[key]; ok {
		return spend, nil
	}
	if ec.TodaySpend == nil {
		return 0, fmt.Errorf("%w: metric %s not available", models.ErrActionExecution, key)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	spend, ok, err := ec.TodaySpend(callCtx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrActionExecution, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: metric %s not available", models.ErrActionExecution, key)
	}
	return spend, nil
}

// applyBudget sends target to the provider unless it is within NegligibleDelta of the current budget
func (e *Executor) applyBudget(ctx context.Context, p provider.AdProvider, asset *models.Asset, actionType models.ActionType, info *provider.BudgetInfo, target float64) models.ActionResult {
	before := decimal.NewFromFloat(info.Budget)
	after := decimal.NewFromFloat(target)
	delta := after.Sub(before)

	result := models.ActionResult{
		ActionType: actionType,
		Before:     before.InexactFloat64(),
		After:      before.InexactFloat64(),
	}

	if delta.Abs().LessThan(decimal.NewFromFloat(NegligibleDelta)) {
		result.Success = true
		result.Message = fmt.Sprintf("no change: budget stays at %s", before.StringFixed(2))
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := p.UpdateBudget(callCtx, asset.ExternalID, asset.AssetType, target, info.BudgetType); err != nil {
		return failedResult(actionType, fmt.Errorf("%w: failed to update budget: %v", models.ErrActionExecution, err))
	}

	result.Success = true
	result.Changed = true
	result.After = after.InexactFloat64()
	result.Delta = delta.Round(2).InexactFloat64()
	result.Message = fmt.Sprintf("%s budget changed from %s to %s", info.BudgetType, before.StringFixed(2), after.StringFixed(2))
	return result
}

func (e *Executor) pause(ctx context.Context, ec *ExecutionContext, getProvider func() (provider.AdProvider, error)) models.ActionResult {
	p, err := getProvider()
	if err != nil {
		return failedResult(models.ActionPause, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := p.PauseAsset(callCtx, ec.Asset.ExternalID, ec.Asset.AssetType); err != nil {
		return failedResult(models.ActionPause, fmt.Errorf("%w: failed to pause asset: %v", models.ErrActionExecution, err))
	}

	return models.ActionResult{
		Success:    true,
		ActionType: models.ActionPause,
		Changed:    true,
		Message:    fmt.Sprintf("%s %s paused", ec.Asset.AssetType, ec.Asset.ExternalID),
	}
}

func (e *Executor) disableProduct(ctx context.Context, ec *ExecutionContext) models.ActionResult {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	found, err := e.products.Disable(callCtx, ec.Asset.ProductID)
	if err != nil {
		return failedResult(models.ActionDisableProduct, fmt.Errorf("%w: failed to disable product: %v", models.ErrActionExecution, err))
	}
	if !found {
		return failedResult(models.ActionDisableProduct, fmt.Errorf("%w: product %s not found", models.ErrActionExecution, ec.Asset.ProductID))
	}

	return models.ActionResult{
		Success:    true,
		ActionType: models.ActionDisableProduct,
		Changed:    true,
		Message:    fmt.Sprintf("product %s disabled", ec.Asset.ProductID),
	}
}

func (e *Executor) getBudget(ctx context.Context, p provider.AdProvider, asset *models.Asset) (*provider.BudgetInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	info, err := p.GetBudget(callCtx, asset.ExternalID, asset.AssetType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get budget: %v", models.ErrActionExecution, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: provider returned no budget", models.ErrActionExecution)
	}
	return info, nil
}

// ComputeBudgetChange returns the budget an increase or decrease action targets, rounded to cents.
// Increases are capped at UntilLimit, decreases floored at UntilLimit (MinBudget without a limit).
// A clamp never moves the budget against the action's direction.
func ComputeBudgetChange(current float64, action *models.Action) float64 {
	cur := decimal.NewFromFloat(current)
	change := decimal.NewFromFloat(action.ChangeBy)

	delta := change
	if action.ChangeType != models.ChangeFixed {
		delta = cur.Mul(change).Div(decimal.NewFromInt(100))
	}

	var next decimal.Decimal
	switch action.Type {
	case models.ActionIncreaseBudget:
		next = cur.Add(delta)
		if action.UntilLimit > 0 {
			next = decimal.Min(next, decimal.NewFromFloat(action.UntilLimit))
		}
		next = decimal.Max(next, cur)
	case models.ActionDecreaseBudget:
		floor := decimal.NewFromFloat(MinBudget)
		if action.UntilLimit > 0 {
			floor = decimal.NewFromFloat(action.UntilLimit)
		}
		next = decimal.Max(cur.Sub(delta), floor)
		next = decimal.Min(next, cur)
	default:
		next = cur
	}

	return next.Round(2).InexactFloat64()
}

// ComputeSpendTarget returns today's spend plus or minus the adjustment, floored at MinBudget
func ComputeSpendTarget(spendToday float64, action *models.Action) float64 {
	spend := decimal.NewFromFloat(spendToday)
	adj := decimal.NewFromFloat(action.AdjustmentValue)

	target := spend.Add(adj)
	if action.AdjustmentType == models.AdjustSubtract {
		target = spend.Sub(adj)
	}

	return decimal.Max(target, decimal.NewFromFloat(MinBudget)).Round(2).InexactFloat64()
}

func failedResult(actionType models.ActionType, err error) models.ActionResult {
	if !errors.Is(err, models.ErrActionExecution) && !errors.Is(err, models.ErrConfiguration) {
		err = fmt.Errorf("%w: %v", models.ErrActionExecution, err)
	}
	return models.ActionResult{
		ActionType: actionType,
		Error:      err.Error(),
	}
}

func actionStatus(r *models.ActionResult) string {
	switch {
	case r.Skipped:
		return "skipped"
	case !r.Success:
		return "failed"
	case r.Changed:
		return "changed"
	default:
		return "unchanged"
	}
}
