package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

// ResolveContext carries the clock and timezone a resolution runs in
type ResolveContext struct {
	// Location is the timezone of the bot owning the asset's product
	Location *time.Location
	// Now is the evaluation instant
	Now time.Time
}

// Today returns midnight of the current day in the context's location
func (rc ResolveContext) Today() time.Time {
	return StartOfDay(rc.local())
}

func (rc ResolveContext) local() time.Time {
	loc := rc.Location
	if loc == nil {
		loc = time.Local
	}
	return rc.Now.In(loc)
}

// Resolution is the flat metric map of one rule run
type Resolution struct {
	Metrics    models.MetricSnapshot
	TimeRanges []models.TimeRange
}

// Resolver builds metric snapshots from ingested metrics and the sales ledger
type Resolver struct {
	store    storage.MetricStore
	revenue  storage.RevenueCalculator
	registry *Registry
}

// NewResolver creates a new metric resolver
func NewResolver(store storage.MetricStore, revenue storage.RevenueCalculator, registry *Registry) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{
		store:    store,
		revenue:  revenue,
		registry: registry,
	}
}

// Resolve computes every metric a rule can reference for the given time ranges.
// The first range failing its data-sufficiency gate aborts the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, asset *models.Asset, ranges []models.TimeRange, rc ResolveContext) (*Resolution, error) {
	if asset == nil {
		return nil, fmt.Errorf("%w: asset cannot be nil", models.ErrConfiguration)
	}
	if rc.Now.IsZero() {
		rc.Now = time.Now()
	}
	if len(ranges) == 0 {
		ranges = []models.TimeRange{models.RangeToday}
	}

	metrics := make(models.MetricSnapshot)
	used := make([]models.TimeRange, 0, len(ranges))
	seen := make(map[models.TimeRange]bool, len(ranges))
	wantToday := false

	for _, tr := range ranges {
		if seen[tr] {
			continue
		}
		seen[tr] = true

		values, err := r.resolveRange(ctx, asset, tr, rc)
		if err != nil {
			return nil, err
		}
		for name, v := range values {
			metrics[string(rules.ResolveKey(name, tr))] = v
		}
		used = append(used, tr)
		if tr == models.RangeToday {
			wantToday = true
		}
	}

	if wantToday {
		deltas, err := r.resolveDeltas(ctx, asset, rc)
		if err != nil {
			return nil, err
		}
		for k, v := range deltas {
			metrics[k] = v
		}
	}

	for k, v := range CalendarMetrics(rc.Now, rc.Location) {
		metrics[k] = v
	}

	logger.Debug("Resolved metrics",
		logger.String("asset_id", asset.ID),
		logger.Int("metric_count", len(metrics)),
		logger.Any("time_ranges", used),
	)

	return &Resolution{Metrics: metrics, TimeRanges: used}, nil
}

// resolveRange aggregates one window and applies the data-sufficiency gate
func (r *Resolver) resolveRange(ctx context.Context, asset *models.Asset, tr models.TimeRange, rc ResolveContext) (map[string]float64, error) {
	today := rc.Today()
	window, err := WindowFor(tr, today)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}

	var totals models.AdTotals
	available := 0

	// historical part: complete days strictly before today
	histTo := window.To
	if !histTo.Before(today) {
		histTo = today.AddDate(0, 0, -1)
	}
	if !window.From.After(histTo) {
		agg, err := r.store.DailyAggregates(ctx, asset.ProductID, asset.ID, window.From, histTo)
		if err != nil {
			return nil, fmt.Errorf("failed to load daily aggregates for %s: %w", tr, err)
		}
		if agg != nil {
			totals = totals.Add(agg.AdTotals)
			available += agg.CompleteDayCount
		}
	}

	// live part: the latest snapshot of today is already day-cumulative
	if window.Contains(today) {
		snap, err := r.store.LatestHourlySnapshot(ctx, asset.ProductID, asset.ID, today, rc.local().Hour())
		if err != nil {
			return nil, fmt.Errorf("failed to load hourly snapshot for %s: %w", tr, err)
		}
		if snap != nil {
			totals = totals.Add(snap.AdTotals)
			if !snap.IsEmpty() {
				available++
			}
		}
	}

	if totals.IsEmpty() {
		return nil, &InsufficiencyError{TimeRange: tr, Reason: ReasonNoMetrics}
	}
	if required := RequiredDays(tr); required > available {
		return nil, &InsufficiencyError{TimeRange: tr, Reason: ReasonInsufficientDays, Required: required, Available: available}
	}
	if totals.Results < MinResults {
		return nil, &InsufficiencyError{TimeRange: tr, Reason: ReasonInsufficientActivity}
	}

	revenue, err := r.revenue.ConfirmedRevenue(ctx, asset.ProductID, window.From, window.End())
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue for %s: %w", tr, err)
	}

	return r.registry.ComputeAll(&WindowTotals{AdTotals: totals, Revenue: revenue}), nil
}

// TodaySpend returns the spend of today's latest snapshot without applying any
// data-sufficiency gate. The second result is false when no snapshot exists yet.
func (r *Resolver) TodaySpend(ctx context.Context, asset *models.Asset, rc ResolveContext) (float64, bool, error) {
	if asset == nil {
		return 0, false, fmt.Errorf("%w: asset cannot be nil", models.ErrConfiguration)
	}
	if rc.Now.IsZero() {
		rc.Now = time.Now()
	}

	snap, err := r.store.LatestHourlySnapshot(ctx, asset.ProductID, asset.ID, rc.Today(), rc.local().Hour())
	if err != nil {
		return 0, false, fmt.Errorf("failed to load today's spend: %w", err)
	}
	if snap == nil {
		return 0, false, nil
	}
	return snap.Spend, true, nil
}
