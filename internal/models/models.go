package models

import (
	"time"
)

// TimeRange names a date window used to scope metric aggregation
type TimeRange string

const (
	RangeToday     TimeRange = "today"
	RangeYesterday TimeRange = "yesterday"
	RangeLast3d    TimeRange = "last_3d"
	RangeLast7d    TimeRange = "last_7d"
	RangeLast14d   TimeRange = "last_14d"
	RangeLast30d   TimeRange = "last_30d"
	RangeLifetime  TimeRange = "lifetime"
)

// AllTimeRanges lists every supported time range in canonical order
var AllTimeRanges = []TimeRange{
	RangeToday,
	RangeYesterday,
	RangeLast3d,
	RangeLast7d,
	RangeLast14d,
	RangeLast30d,
	RangeLifetime,
}

// IsValid reports whether the time range is one of the supported values
func (tr TimeRange) IsValid() bool {
	for _, r := range AllTimeRanges {
		if r == tr {
			return true
		}
	}
	return false
}

// ConditionsLogic selects how conditions and groups combine inside a block
type ConditionsLogic string

const (
	// LogicAndOrAnd is an OR of AND-groups: (a AND b) OR (c AND d)
	LogicAndOrAnd ConditionsLogic = "and_or_and"
	// LogicOrAndOr is an AND of OR-groups: (a OR b) AND (c OR d)
	LogicOrAndOr ConditionsLogic = "or_and_or"
)

// ActionType identifies what an action does when its block is selected
type ActionType string

const (
	ActionIncreaseBudget ActionType = "increase_budget"
	ActionDecreaseBudget ActionType = "decrease_budget"
	ActionAdjustToSpend  ActionType = "adjust_to_spend"
	ActionPause          ActionType = "pause"
	ActionDisableProduct ActionType = "disable_product"
)

// TimePeriod is the cooldown policy of an action
type TimePeriod string

const (
	PeriodEverytime TimePeriod = "everytime"
	PeriodOnce      TimePeriod = "once"
	PeriodDaily     TimePeriod = "daily"
	PeriodEvery2h   TimePeriod = "every_2h"
	PeriodEvery3h   TimePeriod = "every_3h"
	PeriodEvery6h   TimePeriod = "every_6h"
)

// ChangeType selects how ChangeBy is interpreted for budget actions
type ChangeType string

const (
	ChangePercent ChangeType = "percent"
	ChangeFixed   ChangeType = "fixed"
)

// AdjustmentType selects the direction of an adjust_to_spend action
type AdjustmentType string

const (
	AdjustAdd      AdjustmentType = "add"
	AdjustSubtract AdjustmentType = "subtract"
)

// Rule represents an auto-scaling rule attached to an ad asset
type Rule struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	AssetID   string           `json:"asset_id"`
	Name      string           `json:"name"`
	IsActive  bool             `json:"is_active"`
	Status    int              `json:"status"`
	Blocks    []ConditionBlock `json:"condition_blocks"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// RuleRecord is a rule row as stored, with its config still encoded
type RuleRecord struct {
	ID        string
	UserID    string
	AssetID   string
	Name      string
	IsActive  bool
	Status    int
	Config    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RuleConfig is the decoded JSON config column of a rule
type RuleConfig struct {
	Blocks []ConditionBlock `json:"condition_blocks"`
}

// ConditionBlock is an ordered unit of conditions plus the actions to run when they hold
type ConditionBlock struct {
	Name    string           `json:"name"`
	Logic   ConditionsLogic  `json:"conditions_logic"`
	Groups  []ConditionGroup `json:"condition_groups"`
	Actions []Action         `json:"actions"`
}

// ConditionGroup is an ordered list of conditions
type ConditionGroup struct {
	Conditions []Condition `json:"conditions"`
}

// Condition compares one metric against a numeric threshold
type Condition struct {
	Metric    string    `json:"metric"`               // e.g. "roas", "spend", "current_hour"
	Operator  string    `json:"operator"`             // ">", "<", ">=", "<=", "==", "!="
	Value     float64   `json:"value"`                // threshold
	TimeRange TimeRange `json:"time_range,omitempty"` // empty for calendar/delta metrics
}

// Action is a side effect executed when its block is selected
type Action struct {
	Type            ActionType     `json:"action_type"`
	ChangeBy        float64        `json:"change_by,omitempty"`
	ChangeType      ChangeType     `json:"change_type,omitempty"`
	UntilLimit      float64        `json:"until_limit,omitempty"`
	AdjustmentType  AdjustmentType `json:"adjustment_type,omitempty"`
	AdjustmentValue float64        `json:"adjustment_value,omitempty"`
	TimePeriod      TimePeriod     `json:"time_period"`
}

// Validate validates a Rule
func (r *Rule) Validate() error {
	if r.ID == "" {
		return ErrInvalidRuleID
	}
	if r.AssetID == "" {
		return ErrInvalidAssetID
	}
	if len(r.Blocks) == 0 {
		return ErrNoConditionBlocks
	}
	return nil
}

// Validate validates a Condition
func (c *Condition) Validate() error {
	if c.Metric == "" {
		return ErrInvalidMetric
	}
	validOps := map[string]bool{
		">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true,
	}
	if !validOps[c.Operator] {
		return ErrInvalidOperator
	}
	return nil
}

// MetricSnapshot maps resolved variable names to values for one rule run
type MetricSnapshot map[string]float64

// Copy returns an independent copy of the snapshot
func (s MetricSnapshot) Copy() MetricSnapshot {
	out := make(MetricSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// AdTotals holds raw ad delivery counters for a window
type AdTotals struct {
	Spend       float64 `json:"spend"`
	Impressions float64 `json:"impressions"`
	Reach       float64 `json:"reach"`
	Clicks      float64 `json:"clicks"`
	Results     float64 `json:"results"`
}

// IsEmpty reports whether spend, results and impressions are all zero
func (t AdTotals) IsEmpty() bool {
	return t.Spend == 0 && t.Results == 0 && t.Impressions == 0
}

// Add returns the sum of two totals
func (t AdTotals) Add(o AdTotals) AdTotals {
	return AdTotals{
		Spend:       t.Spend + o.Spend,
		Impressions: t.Impressions + o.Impressions,
		Reach:       t.Reach + o.Reach,
		Clicks:      t.Clicks + o.Clicks,
		Results:     t.Results + o.Results,
	}
}

// DailyAggregate is the sum of historical daily rollups over a date range
type DailyAggregate struct {
	AdTotals
	CompleteDayCount int `json:"complete_day_count"`
}

// HourlySnapshot is a day-cumulative snapshot taken at the end of an hour
type HourlySnapshot struct {
	AdTotals
	Date time.Time `json:"date"`
	Hour int       `json:"hour"`
}
