package models

import (
	"time"
)

// HistoryRecord is the append-only audit entry written once per rule run
type HistoryRecord struct {
	ID                  string            `json:"id"`
	RuleID              string            `json:"rule_id"`
	UserID              string            `json:"user_id"`
	AssetID             string            `json:"asset_id"`
	ProductID           string            `json:"product_id"`
	Metrics             MetricSnapshot    `json:"metrics"`
	TimeRanges          []TimeRange       `json:"time_ranges"`
	ConditionsMet       bool              `json:"conditions_met"`
	BlockExecuted       *int              `json:"block_executed"`
	BlocksEvaluated     []BlockEvaluation `json:"blocks_evaluated"`
	ActionExecuted      bool              `json:"action_executed"`
	ActionType          ActionType        `json:"action_type,omitempty"`
	ExecutedActionTypes []ActionType      `json:"executed_action_types,omitempty"`
	ActionResults       []ActionResult    `json:"action_result,omitempty"`
	Success             bool              `json:"success"`
	ErrorMessage        string            `json:"error_message,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Validate validates a HistoryRecord
func (h *HistoryRecord) Validate() error {
	if h.ID == "" {
		return ErrInvalidHistoryID
	}
	if h.RuleID == "" {
		return ErrInvalidRuleID
	}
	if h.CreatedAt.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// BlockEvaluation is the audit entry for one condition block.
// Met and Evaluation are nil for blocks after the selected one: never checked, not false.
type BlockEvaluation struct {
	Index      int         `json:"index"`
	Name       string      `json:"name"`
	Met        *bool       `json:"met"`
	Evaluation *BlockTrace `json:"evaluation"`
	Executed   bool        `json:"executed"`
	Error      string      `json:"error,omitempty"`
}

// BlockTrace explains how a block's boolean expression evaluated
type BlockTrace struct {
	Logic      ConditionsLogic `json:"logic"`
	Expression string          `json:"expression"`
	Result     bool            `json:"result"`
	Groups     []GroupTrace    `json:"groups"`
}

// GroupTrace is the evaluation of one condition group
type GroupTrace struct {
	Index      int              `json:"index"`
	Matched    bool             `json:"matched"`
	Conditions []ConditionTrace `json:"conditions"`
}

// ConditionTrace records the metric value actually compared for a condition
type ConditionTrace struct {
	Key       string  `json:"key"`
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold"`
	Value     float64 `json:"value"`
	Found     bool    `json:"found"`
	Matched   bool    `json:"matched"`
}

// ActionResult is the uniform outcome of executing a single action
type ActionResult struct {
	Success    bool       `json:"success"`
	ActionType ActionType `json:"action_type"`
	Skipped    bool       `json:"skipped,omitempty"`
	Changed    bool       `json:"changed,omitempty"`
	Before     float64    `json:"before,omitempty"`
	After      float64    `json:"after,omitempty"`
	Delta      float64    `json:"delta,omitempty"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
}
