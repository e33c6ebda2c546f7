package autoscale

import (
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// Batch kinds
const (
	KindHourly = "hourly"
	KindDaily  = "daily"
	KindRule   = "rule"
)

// RuleResult is the outcome of one rule run as reported to callers
type RuleResult struct {
	RuleID          string                   `json:"ruleId"`
	RuleName        string                   `json:"ruleName"`
	AssetID         string                   `json:"assetId,omitempty"`
	Success         bool                     `json:"success"`
	ConditionsMet   bool                     `json:"conditionsMet"`
	ActionExecuted  bool                     `json:"actionExecuted"`
	Message         string                   `json:"message"`
	BlocksEvaluated []models.BlockEvaluation `json:"blocksEvaluated"`
	Metrics         models.MetricSnapshot    `json:"metrics"`
	ActionResults   []models.ActionResult    `json:"actionResults,omitempty"`
}

// BatchSummary aggregates the rule results of one batch
type BatchSummary struct {
	Success         bool         `json:"success"`
	Kind            string       `json:"kind"`
	TraceID         string       `json:"traceId"`
	RulesProcessed  int          `json:"rulesProcessed"`
	ActionsExecuted int          `json:"actionsExecuted"`
	ExecutionTimeMs int64        `json:"executionTimeMs"`
	Results         []RuleResult `json:"results"`
}

func newBatchSummary(kind, traceID string) *BatchSummary {
	return &BatchSummary{
		Success: true,
		Kind:    kind,
		TraceID: traceID,
		Results: make([]RuleResult, 0),
	}
}

// add appends a rule result and updates the counters
func (s *BatchSummary) add(r RuleResult) {
	s.Results = append(s.Results, r)
	s.RulesProcessed++
	if r.ActionExecuted {
		s.ActionsExecuted++
	}
}

func (s *BatchSummary) finish(start time.Time) {
	s.ExecutionTimeMs = time.Since(start).Milliseconds()
}

// Failed returns the results of rules that did not run successfully
func (s *BatchSummary) Failed() []RuleResult {
	var out []RuleResult
	for _, r := range s.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}
