package rules

import (
	"fmt"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// MetricKey is the resolved variable name of a metric inside a MetricSnapshot,
// e.g. "roas_today" or "current_hour"
type MetricKey string

// MetricKind classifies how a metric name resolves to a key
type MetricKind int

const (
	// KindRanged metrics are aggregated over a time range and keyed "metric_timeRange"
	KindRanged MetricKind = iota
	// KindCalendar metrics describe "now" in the bot timezone and carry no range
	KindCalendar
	// KindDelta metrics are hour-over-hour changes of today's values and carry no range
	KindDelta
)

// Ranged metric names
const (
	MetricSpend       = "spend"
	MetricImpressions = "impressions"
	MetricReach       = "reach"
	MetricClicks      = "clicks"
	MetricResults     = "results"
	MetricCTR         = "ctr"
	MetricCPC         = "cpc"
	MetricCPM         = "cpm"
	MetricRevenue     = "revenue"
	MetricROAS        = "roas"
	MetricProfit      = "profit"
)

// Calendar metric names
const (
	MetricCurrentHour      = "current_hour"
	MetricCurrentDayOfWeek = "current_day_of_week"
)

// DeltaHours lists the supported look-back windows of temporal delta metrics
var DeltaHours = []int{1, 2, 3}

// DeltaBases lists the metrics that have temporal delta variants
var DeltaBases = []string{MetricROAS, MetricProfit}

var rangedMetrics = map[string]bool{
	MetricSpend:       true,
	MetricImpressions: true,
	MetricReach:       true,
	MetricClicks:      true,
	MetricResults:     true,
	MetricCTR:         true,
	MetricCPC:         true,
	MetricCPM:         true,
	MetricRevenue:     true,
	MetricROAS:        true,
	MetricProfit:      true,
}

var calendarMetrics = map[string]bool{
	MetricCurrentHour:      true,
	MetricCurrentDayOfWeek: true,
}

var deltaMetrics = buildDeltaMetrics()

func buildDeltaMetrics() map[string]bool {
	out := make(map[string]bool)
	for _, base := range DeltaBases {
		for _, h := range DeltaHours {
			out[DeltaMetricName(base, h)] = true
		}
	}
	return out
}

// DeltaMetricName returns the name of the N-hour delta of a base metric, e.g. "roas_change_2h"
func DeltaMetricName(base string, hours int) string {
	return fmt.Sprintf("%s_change_%dh", base, hours)
}

// KindOf classifies a metric name. The second result is false for unknown metrics.
func KindOf(metric string) (MetricKind, bool) {
	switch {
	case calendarMetrics[metric]:
		return KindCalendar, true
	case deltaMetrics[metric]:
		return KindDelta, true
	case rangedMetrics[metric]:
		return KindRanged, true
	default:
		return 0, false
	}
}

// ResolveKey maps a metric and time range to its snapshot key. Calendar and delta
// metrics resolve to their bare name; every other metric resolves to "metric_timeRange".
func ResolveKey(metric string, timeRange models.TimeRange) MetricKey {
	kind, _ := KindOf(metric)
	if kind == KindCalendar || kind == KindDelta {
		return MetricKey(metric)
	}
	if timeRange == "" {
		timeRange = models.RangeToday
	}
	return MetricKey(metric + "_" + string(timeRange))
}

// ConditionKey resolves the snapshot key referenced by a condition
func ConditionKey(cond *models.Condition) MetricKey {
	return ResolveKey(cond.Metric, cond.TimeRange)
}

// ReferencedTimeRanges returns the distinct time ranges a rule needs, in canonical order.
// Today is included when no range is referenced, and when a delta metric needs
// today's values. Actions never add ranges: adjust_to_spend reads today's spend
// outside condition resolution.
func ReferencedTimeRanges(rule *models.Rule) []models.TimeRange {
	seen := make(map[models.TimeRange]bool)
	for _, block := range rule.Blocks {
		for _, group := range block.Groups {
			for _, cond := range group.Conditions {
				kind, ok := KindOf(cond.Metric)
				if !ok {
					continue
				}
				switch kind {
				case KindRanged:
					tr := cond.TimeRange
					if tr == "" {
						tr = models.RangeToday
					}
					seen[tr] = true
				case KindDelta:
					seen[models.RangeToday] = true
				}
			}
		}
	}

	if len(seen) == 0 {
		return []models.TimeRange{models.RangeToday}
	}

	ranges := make([]models.TimeRange, 0, len(seen))
	for _, tr := range models.AllTimeRanges {
		if seen[tr] {
			ranges = append(ranges, tr)
		}
	}
	return ranges
}

// IsTodayOnly reports whether a rule references no range other than today.
// Such rules run in the hourly batch; every other rule runs daily.
func IsTodayOnly(rule *models.Rule) bool {
	ranges := ReferencedTimeRanges(rule)
	return len(ranges) == 1 && ranges[0] == models.RangeToday
}
