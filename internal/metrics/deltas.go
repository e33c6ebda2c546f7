package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
)

// hourPoint is today's cumulative roas and profit as of the end of an hour
type hourPoint struct {
	roas   float64
	profit float64
}

// resolveDeltas computes roas_change_Nh and profit_change_Nh. The anchor is the latest
// persisted snapshot hour, not the wall clock, so an ingestion run still in flight for
// the current hour does not skew the result. A delta without a snapshot N hours back is 0.
func (r *Resolver) resolveDeltas(ctx context.Context, asset *models.Asset, rc ResolveContext) (models.MetricSnapshot, error) {
	out := make(models.MetricSnapshot, len(rules.DeltaBases)*len(rules.DeltaHours))
	for _, base := range rules.DeltaBases {
		for _, h := range rules.DeltaHours {
			out[rules.DeltaMetricName(base, h)] = 0
		}
	}

	today := rc.Today()
	anchor, err := r.store.LatestHourlySnapshot(ctx, asset.ProductID, asset.ID, today, rc.local().Hour())
	if err != nil {
		return nil, fmt.Errorf("failed to load anchor snapshot: %w", err)
	}
	if anchor == nil {
		return out, nil
	}

	current, err := r.pointAt(ctx, asset, today, anchor)
	if err != nil {
		return nil, err
	}

	for _, h := range rules.DeltaHours {
		target := anchor.Hour - h
		if target < 0 {
			continue
		}
		prev, err := r.store.LatestHourlySnapshot(ctx, asset.ProductID, asset.ID, today, target)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot at hour %d: %w", target, err)
		}
		if prev == nil {
			continue
		}
		past, err := r.pointAt(ctx, asset, today, prev)
		if err != nil {
			return nil, err
		}
		out[rules.DeltaMetricName(rules.MetricROAS, h)] = current.roas - past.roas
		out[rules.DeltaMetricName(rules.MetricProfit, h)] = Round2(current.profit - past.profit)
	}

	return out, nil
}

// pointAt derives roas and profit from a snapshot and the revenue confirmed up to the end of its hour
func (r *Resolver) pointAt(ctx context.Context, asset *models.Asset, today time.Time, snap *models.HourlySnapshot) (hourPoint, error) {
	until := time.Date(today.Year(), today.Month(), today.Day(), snap.Hour+1, 0, 0, 0, today.Location())
	revenue, err := r.revenue.ConfirmedRevenue(ctx, asset.ProductID, today, until)
	if err != nil {
		return hourPoint{}, fmt.Errorf("failed to compute revenue until hour %d: %w", snap.Hour, err)
	}

	return hourPoint{
		roas:   Quotient(revenue, snap.Spend, 1),
		profit: Round2(revenue - snap.Spend),
	}, nil
}
