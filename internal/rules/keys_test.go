package rules

import (
	"reflect"
	"testing"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name      string
		metric    string
		timeRange models.TimeRange
		want      MetricKey
	}{
		{name: "ranged metric", metric: "roas", timeRange: models.RangeToday, want: "roas_today"},
		{name: "ranged metric historical", metric: "spend", timeRange: models.RangeLast7d, want: "spend_last_7d"},
		{name: "empty range defaults to today", metric: "cpc", timeRange: "", want: "cpc_today"},
		{name: "calendar metric ignores range", metric: "current_hour", timeRange: models.RangeYesterday, want: "current_hour"},
		{name: "day of week", metric: "current_day_of_week", want: "current_day_of_week"},
		{name: "delta metric ignores range", metric: "roas_change_2h", timeRange: models.RangeLifetime, want: "roas_change_2h"},
		{name: "profit delta", metric: "profit_change_3h", want: "profit_change_3h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveKey(tt.metric, tt.timeRange)
			if got != tt.want {
				t.Errorf("ResolveKey(%q, %q) = %q, want %q", tt.metric, tt.timeRange, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		metric string
		kind   MetricKind
		known  bool
	}{
		{"spend", KindRanged, true},
		{"roas", KindRanged, true},
		{"current_hour", KindCalendar, true},
		{"roas_change_1h", KindDelta, true},
		{"profit_change_3h", KindDelta, true},
		{"roas_change_4h", 0, false},
		{"spend_change_1h", 0, false},
		{"rsi_14", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			kind, known := KindOf(tt.metric)
			if known != tt.known {
				t.Fatalf("KindOf(%q) known = %v, want %v", tt.metric, known, tt.known)
			}
			if known && kind != tt.kind {
				t.Errorf("KindOf(%q) = %v, want %v", tt.metric, kind, tt.kind)
			}
		})
	}
}

func TestReferencedTimeRanges(t *testing.T) {
	tests := []struct {
		name      string
		blocks    []models.ConditionBlock
		want      []models.TimeRange
		todayOnly bool
	}{
		{
			name: "calendar only defaults to today",
			blocks: []models.ConditionBlock{
				block(models.LogicAndOrAnd, cond("current_hour", ">=", 8, "")),
			},
			want:      []models.TimeRange{models.RangeToday},
			todayOnly: true,
		},
		{
			name: "mixed ranges in canonical order",
			blocks: []models.ConditionBlock{
				block(models.LogicAndOrAnd, cond("spend", ">", 10, models.RangeLast7d)),
				block(models.LogicAndOrAnd, cond("roas", "<", 1, models.RangeYesterday), cond("roas", "<", 1, models.RangeLast7d)),
			},
			want:      []models.TimeRange{models.RangeYesterday, models.RangeLast7d},
			todayOnly: false,
		},
		{
			name: "delta metric implies today",
			blocks: []models.ConditionBlock{
				block(models.LogicAndOrAnd, cond("roas_change_1h", "<", 0, ""), cond("spend", ">", 5, models.RangeLifetime)),
			},
			want:      []models.TimeRange{models.RangeToday, models.RangeLifetime},
			todayOnly: false,
		},
		{
			name: "adjust to spend adds no range",
			blocks: []models.ConditionBlock{
				withActions(block(models.LogicAndOrAnd, cond("roas", ">", 2, models.RangeLast3d)),
					models.Action{Type: models.ActionAdjustToSpend, AdjustmentType: models.AdjustAdd, TimePeriod: models.PeriodDaily}),
			},
			want:      []models.TimeRange{models.RangeLast3d},
			todayOnly: false,
		},
		{
			name: "today only",
			blocks: []models.ConditionBlock{
				block(models.LogicOrAndOr, cond("roas", "<", 1, models.RangeToday), cond("cpc", ">", 2, "")),
			},
			want:      []models.TimeRange{models.RangeToday},
			todayOnly: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &models.Rule{ID: "rule-1", AssetID: "asset-1", Blocks: tt.blocks}
			got := ReferencedTimeRanges(rule)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReferencedTimeRanges() = %v, want %v", got, tt.want)
			}
			if IsTodayOnly(rule) != tt.todayOnly {
				t.Errorf("IsTodayOnly() = %v, want %v", !tt.todayOnly, tt.todayOnly)
			}
		})
	}
}

// Test helpers shared by the package tests

func cond(metric, op string, value float64, tr models.TimeRange) models.Condition {
	return models.Condition{Metric: metric, Operator: op, Value: value, TimeRange: tr}
}

// block builds a block with a single group holding every condition
func block(logic models.ConditionsLogic, conds ...models.Condition) models.ConditionBlock {
	return models.ConditionBlock{
		Name:   "block",
		Logic:  logic,
		Groups: []models.ConditionGroup{{Conditions: conds}},
	}
}

func withActions(b models.ConditionBlock, actions ...models.Action) models.ConditionBlock {
	b.Actions = actions
	return b
}
