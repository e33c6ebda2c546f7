package autoscale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/metrics"
	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// SummaryPublisher receives the summary of every finished batch
type SummaryPublisher interface {
	Publish(ctx context.Context, kind string, summary interface{}) error
}

// RunnerConfig holds configuration for the rule runner
type RunnerConfig struct {
	// DefaultLocation is used when the asset's bot has no valid timezone
	DefaultLocation *time.Location
	// QueryTimeout bounds asset lookups and each metric resolution
	QueryTimeout time.Duration
}

// DefaultRunnerConfig returns default configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		DefaultLocation: time.UTC,
		QueryTimeout:    10 * time.Second,
	}
}

// Dependencies are the collaborators of a Runner. Publisher is optional.
type Dependencies struct {
	Rules     rules.RuleStore
	Assets    storage.AssetRepository
	Timezones storage.TimezoneLookup
	Resolver  *metrics.Resolver
	Compiler  *rules.Compiler
	Executor  *Executor
	Recorder  *HistoryRecorder
	Publisher SummaryPublisher
}

// Runner evaluates active rules in sequential batches
type Runner struct {
	deps   Dependencies
	config RunnerConfig
	now    func() time.Time
}

// NewRunner creates a new rule runner
func NewRunner(deps Dependencies, config RunnerConfig) (*Runner, error) {
	switch {
	case deps.Rules == nil:
		return nil, fmt.Errorf("rule store cannot be nil")
	case deps.Assets == nil:
		return nil, fmt.Errorf("asset repository cannot be nil")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("metric resolver cannot be nil")
	case deps.Compiler == nil:
		return nil, fmt.Errorf("compiler cannot be nil")
	case deps.Executor == nil:
		return nil, fmt.Errorf("executor cannot be nil")
	case deps.Recorder == nil:
		return nil, fmt.Errorf("history recorder cannot be nil")
	}

	if config.DefaultLocation == nil {
		config.DefaultLocation = time.UTC
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 10 * time.Second
	}

	return &Runner{
		deps:   deps,
		config: config,
		now:    time.Now,
	}, nil
}

// RunHourly processes active rules that only reference today
func (r *Runner) RunHourly(ctx context.Context) (*BatchSummary, error) {
	return r.runBatch(ctx, KindHourly, func(rec *models.RuleRecord) bool {
		rule, err := rules.DecodeRule(rec)
		return err == nil && rules.IsTodayOnly(rule)
	})
}

// RunDaily processes active rules with a historical range.
// Rules whose config cannot be decoded run here too so they are reported once a day.
func (r *Runner) RunDaily(ctx context.Context) (*BatchSummary, error) {
	return r.runBatch(ctx, KindDaily, func(rec *models.RuleRecord) bool {
		rule, err := rules.DecodeRule(rec)
		return err != nil || !rules.IsTodayOnly(rule)
	})
}

// RunRule processes one rule regardless of its range split and returns its full trace
func (r *Runner) RunRule(ctx context.Context, ruleID string) (*BatchSummary, error) {
	rec, err := r.deps.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrRuleNotFound, ruleID)
	}

	start := time.Now()
	traceID := logger.NewTraceID()
	ctx = logger.WithTraceID(ctx, traceID)

	summary := newBatchSummary(KindRule, traceID)
	summary.add(r.processRule(ctx, KindRule, rec))
	summary.finish(start)

	batchesTotal.WithLabelValues(KindRule).Inc()
	return summary, nil
}

func (r *Runner) runBatch(ctx context.Context, kind string, include func(*models.RuleRecord) bool) (*BatchSummary, error) {
	start := time.Now()
	traceID := logger.NewTraceID()
	ctx = logger.WithTraceID(ctx, traceID)
	log := logger.WithContext(ctx)

	batchesTotal.WithLabelValues(kind).Inc()
	defer func() {
		batchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	records, err := r.deps.Rules.ListActiveRules(ctx)
	if err != nil {
		log.Error("Failed to list active rules",
			logger.ErrorField(err),
			logger.String("kind", kind),
		)
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	selected := make([]*models.RuleRecord, 0, len(records))
	for _, rec := range records {
		if include(rec) {
			selected = append(selected, rec)
		}
	}

	log.Info("Starting rule batch",
		logger.String("kind", kind),
		logger.Int("active_rules", len(records)),
		logger.Int("selected_rules", len(selected)),
	)

	summary := newBatchSummary(kind, traceID)
	for _, rec := range selected {
		summary.add(r.processRule(ctx, kind, rec))
	}
	summary.finish(start)

	log.Info("Finished rule batch",
		logger.String("kind", kind),
		logger.Int("rules_processed", summary.RulesProcessed),
		logger.Int("actions_executed", summary.ActionsExecuted),
		logger.Int("failed", len(summary.Failed())),
		logger.Int64("execution_time_ms", summary.ExecutionTimeMs),
	)

	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.Publish(ctx, kind, summary); err != nil {
			log.Warn("Failed to publish batch summary", logger.ErrorField(err))
		}
	}

	return summary, nil
}

// processRule runs one rule end to end and always records exactly one history entry
func (r *Runner) processRule(ctx context.Context, kind string, rec *models.RuleRecord) (result RuleResult) {
	now := r.now()
	record := &models.HistoryRecord{
		RuleID:    rec.ID,
		UserID:    rec.UserID,
		AssetID:   rec.AssetID,
		Metrics:   models.MetricSnapshot{},
		CreatedAt: now.UTC(),
	}
	result = RuleResult{
		RuleID:   rec.ID,
		RuleName: rec.Name,
		AssetID:  rec.AssetID,
		Metrics:  record.Metrics,
	}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			logger.WithContext(ctx).Error("Recovered from panic in rule run",
				logger.String("rule_id", rec.ID),
				logger.Any("panic", p),
			)
			result = r.fail(ctx, record, result, err)
		}
		rulesProcessedTotal.WithLabelValues(kind, ruleOutcome(&result)).Inc()
	}()

	asset, err := r.lookupAsset(ctx, rec.AssetID)
	if err != nil {
		return r.fail(ctx, record, result, err)
	}
	record.ProductID = asset.ProductID

	rule, err := rules.DecodeRule(rec)
	if err != nil {
		return r.fail(ctx, record, result, err)
	}
	if rule.Name != "" {
		result.RuleName = rule.Name
	}

	rc := r.resolveContext(ctx, asset, now)
	ranges := rules.ReferencedTimeRanges(rule)
	record.TimeRanges = ranges

	resolveCtx, cancel := context.WithTimeout(ctx, r.config.QueryTimeout)
	resolution, err := r.deps.Resolver.Resolve(resolveCtx, asset, ranges, rc)
	cancel()
	if err != nil {
		return r.fail(ctx, record, result, err)
	}
	record.Metrics = resolution.Metrics
	record.TimeRanges = resolution.TimeRanges
	result.Metrics = resolution.Metrics

	selection := r.deps.Compiler.SelectBlock(rule.Blocks, resolution.Metrics)
	record.BlocksEvaluated = selection.Blocks
	record.ConditionsMet = selection.Met()
	record.BlockExecuted = selection.Index
	result.BlocksEvaluated = selection.Blocks
	result.ConditionsMet = selection.Met()

	record.Success = true
	result.Success = true

	if !selection.Met() {
		result.Message = "conditions not met"
		r.deps.Recorder.Record(ctx, record)
		return result
	}

	ec := &ExecutionContext{
		Asset:   asset,
		Metrics: resolution.Metrics,
		Now:     now,
		TodaySpend: func(ctx context.Context) (float64, bool, error) {
			return r.deps.Resolver.TodaySpend(ctx, asset, rc)
		},
	}
	actionResults := r.deps.Executor.ExecuteAll(ctx, ec, selection.Block.Actions)
	applyActionResults(record, actionResults)

	result.Success = record.Success
	result.ActionExecuted = record.ActionExecuted
	result.ActionResults = actionResults
	result.Message = actionMessage(selection.Block.Name, actionResults)

	r.deps.Recorder.Record(ctx, record)
	return result
}

// fail records a failed run and converts it into a rule result
func (r *Runner) fail(ctx context.Context, record *models.HistoryRecord, result RuleResult, err error) RuleResult {
	record.Success = false
	record.ErrorMessage = err.Error()
	logger.ErrorsTotal.WithLabelValues("autoscale", errorCategory(err)).Inc()

	logger.WithContext(ctx).Warn("Rule run failed",
		logger.String("rule_id", record.RuleID),
		logger.String("asset_id", record.AssetID),
		logger.String("category", errorCategory(err)),
		logger.ErrorField(err),
	)

	r.deps.Recorder.Record(ctx, record)

	result.Success = false
	result.ActionExecuted = false
	result.Message = err.Error()
	return result
}

func (r *Runner) lookupAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.config.QueryTimeout)
	defer cancel()

	asset, err := r.deps.Assets.GetActiveAsset(queryCtx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: asset %s not found or inactive", models.ErrConfiguration, assetID)
	}
	return asset, nil
}

// resolveContext pins the clock and the timezone of the bot owning the asset's product
func (r *Runner) resolveContext(ctx context.Context, asset *models.Asset, now time.Time) metrics.ResolveContext {
	rc := metrics.ResolveContext{Location: r.config.DefaultLocation, Now: now}
	if r.deps.Timezones == nil || asset.ProductID == "" {
		return rc
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.config.QueryTimeout)
	defer cancel()

	tz, err := r.deps.Timezones.BotTimezone(queryCtx, asset.ProductID)
	if err != nil {
		logger.Warn("Failed to look up bot timezone, using default",
			logger.ErrorField(err),
			logger.String("product_id", asset.ProductID),
		)
		return rc
	}
	if tz == "" {
		return rc
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("Invalid bot timezone, using default",
			logger.String("timezone", tz),
			logger.String("product_id", asset.ProductID),
		)
		return rc
	}
	rc.Location = loc
	return rc
}

// applyActionResults fills the action fields of a history record.
// The run fails only when every attempted action failed.
func applyActionResults(record *models.HistoryRecord, results []models.ActionResult) {
	record.ActionResults = results

	attempted, failed := 0, 0
	var errs []string
	for _, res := range results {
		if res.Skipped {
			continue
		}
		attempted++
		if !res.Success {
			failed++
			errs = append(errs, fmt.Sprintf("%s: %s", res.ActionType, res.Error))
			continue
		}
		if res.Changed {
			record.ExecutedActionTypes = append(record.ExecutedActionTypes, res.ActionType)
		}
	}

	record.ActionExecuted = len(record.ExecutedActionTypes) > 0
	if record.ActionExecuted {
		record.ActionType = record.ExecutedActionTypes[0]
	} else if len(results) > 0 {
		record.ActionType = results[0].ActionType
	}

	if len(errs) > 0 {
		record.ErrorMessage = strings.Join(errs, "; ")
	}
	record.Success = attempted == 0 || failed < attempted
}

func actionMessage(blockName string, results []models.ActionResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("%s met, no actions configured", blockName)
	}

	executed, skipped, failed := 0, 0, 0
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
		case !res.Success:
			failed++
		case res.Changed:
			executed++
		}
	}
	return fmt.Sprintf("%s met: %d executed, %d skipped, %d failed of %d actions",
		blockName, executed, skipped, failed, len(results))
}

func ruleOutcome(r *RuleResult) string {
	switch {
	case !r.Success:
		return "failed"
	case r.ActionExecuted:
		return "action_executed"
	case r.ConditionsMet:
		return "met"
	default:
		return "not_met"
	}
}

func errorCategory(err error) string {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		return "configuration"
	case errors.Is(err, models.ErrDataInsufficiency):
		return "data_insufficiency"
	case errors.Is(err, models.ErrActionExecution):
		return "action_execution"
	case errors.Is(err, models.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
