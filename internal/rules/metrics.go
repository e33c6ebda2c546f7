package rules

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// FloatEpsilon is the tolerance used for == and != comparisons
const FloatEpsilon = 0.0001

// EvaluateCondition evaluates a condition against a metric snapshot and returns
// the value actually compared. A missing metric never matches.
func EvaluateCondition(cond *models.Condition, metrics models.MetricSnapshot) (models.ConditionTrace, error) {
	if cond == nil {
		return models.ConditionTrace{}, fmt.Errorf("condition cannot be nil")
	}

	key := ConditionKey(cond)
	trace := models.ConditionTrace{
		Key:       string(key),
		Operator:  cond.Operator,
		Threshold: cond.Value,
	}

	value, exists := metrics[string(key)]
	if !exists {
		return trace, nil
	}
	trace.Value = value
	trace.Found = true

	matched, err := Compare(value, cond.Operator, cond.Value)
	if err != nil {
		return trace, err
	}
	trace.Matched = matched
	return trace, nil
}

// Compare applies a comparison operator to a metric value and a threshold
func Compare(value float64, operator string, threshold float64) (bool, error) {
	switch operator {
	case ">":
		return value > threshold, nil
	case "<":
		return value < threshold, nil
	case ">=":
		return value >= threshold, nil
	case "<=":
		return value <= threshold, nil
	case "==":
		return math.Abs(value-threshold) < FloatEpsilon, nil
	case "!=":
		return math.Abs(value-threshold) >= FloatEpsilon, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", operator)
	}
}

// evaluateGroups computes per-group traces for a block. The combined result follows the
// block's logic; Evaluate rejects a compiled result that differs from it.
func evaluateGroups(block *models.ConditionBlock, metrics models.MetricSnapshot) ([]models.GroupTrace, bool, error) {
	andWithin := block.Logic != models.LogicOrAndOr

	groups := make([]models.GroupTrace, 0, len(block.Groups))
	combined := !andWithin // OR of groups starts false, AND of groups starts true
	for gi, group := range block.Groups {
		gt := models.GroupTrace{
			Index:      gi,
			Conditions: make([]models.ConditionTrace, 0, len(group.Conditions)),
		}
		matched := andWithin
		for ci := range group.Conditions {
			ct, err := EvaluateCondition(&group.Conditions[ci], metrics)
			if err != nil {
				return nil, false, fmt.Errorf("group %d condition %d: %w", gi, ci, err)
			}
			gt.Conditions = append(gt.Conditions, ct)
			if andWithin {
				matched = matched && ct.Matched
			} else {
				matched = matched || ct.Matched
			}
		}
		gt.Matched = matched
		groups = append(groups, gt)

		if andWithin {
			combined = combined || matched
		} else {
			combined = combined && matched
		}
	}
	return groups, combined, nil
}
