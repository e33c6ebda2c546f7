package rules

import (
	"fmt"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// ValidateRule validates a decoded rule and all of its blocks
func ValidateRule(rule *models.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	for i := range rule.Blocks {
		if err := ValidateBlock(&rule.Blocks[i]); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}

// ValidateBlock validates a condition block
func ValidateBlock(block *models.ConditionBlock) error {
	switch block.Logic {
	case models.LogicAndOrAnd, models.LogicOrAndOr:
	default:
		return fmt.Errorf("unsupported conditions logic: %q", block.Logic)
	}

	if len(block.Groups) == 0 {
		return fmt.Errorf("block must have at least one condition group")
	}
	for gi, group := range block.Groups {
		if len(group.Conditions) == 0 {
			return fmt.Errorf("group %d: group must have at least one condition", gi)
		}
		for ci := range group.Conditions {
			if err := ValidateCondition(&group.Conditions[ci]); err != nil {
				return fmt.Errorf("group %d condition %d: %w", gi, ci, err)
			}
		}
	}

	for ai := range block.Actions {
		if err := ValidateAction(&block.Actions[ai]); err != nil {
			return fmt.Errorf("action %d: %w", ai, err)
		}
	}

	return nil
}

// ValidateCondition validates a condition with enhanced checks
func ValidateCondition(cond *models.Condition) error {
	if err := cond.Validate(); err != nil {
		return err
	}

	if err := ValidateMetricName(cond.Metric); err != nil {
		return err
	}

	kind, ok := KindOf(cond.Metric)
	if !ok {
		return fmt.Errorf("%w: unknown metric %q", models.ErrInvalidMetric, cond.Metric)
	}
	if kind == KindRanged && !cond.TimeRange.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidTimeRange, cond.TimeRange)
	}

	return nil
}

// ValidateAction validates an action and its type-specific parameters
func ValidateAction(action *models.Action) error {
	switch action.TimePeriod {
	case models.PeriodEverytime, models.PeriodOnce, models.PeriodDaily,
		models.PeriodEvery2h, models.PeriodEvery3h, models.PeriodEvery6h:
	default:
		return fmt.Errorf("%w: unsupported time period %q", models.ErrInvalidAction, action.TimePeriod)
	}

	switch action.Type {
	case models.ActionIncreaseBudget, models.ActionDecreaseBudget:
		if action.ChangeBy <= 0 {
			return fmt.Errorf("%w: change_by must be positive, got %v", models.ErrInvalidAction, action.ChangeBy)
		}
		if action.ChangeType != models.ChangePercent && action.ChangeType != models.ChangeFixed {
			return fmt.Errorf("%w: unsupported change type %q", models.ErrInvalidAction, action.ChangeType)
		}
		if action.UntilLimit < 0 {
			return fmt.Errorf("%w: until_limit must be non-negative", models.ErrInvalidAction)
		}
	case models.ActionAdjustToSpend:
		if action.AdjustmentType != models.AdjustAdd && action.AdjustmentType != models.AdjustSubtract {
			return fmt.Errorf("%w: unsupported adjustment type %q", models.ErrInvalidAction, action.AdjustmentType)
		}
		if action.AdjustmentValue < 0 {
			return fmt.Errorf("%w: adjustment_value must be non-negative", models.ErrInvalidAction)
		}
	case models.ActionPause, models.ActionDisableProduct:
	default:
		return fmt.Errorf("%w: unsupported action type %q", models.ErrInvalidAction, action.Type)
	}

	return nil
}

// ValidateMetricName validates that a metric name is well-formed
func ValidateMetricName(metric string) error {
	if metric == "" {
		return fmt.Errorf("metric name cannot be empty")
	}

	for _, r := range metric {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
			return fmt.Errorf("metric name contains invalid character: %c", r)
		}
	}

	return nil
}

// ValidateOperator validates that an operator is supported
func ValidateOperator(op string) error {
	validOps := map[string]bool{
		">":  true,
		"<":  true,
		">=": true,
		"<=": true,
		"==": true,
		"!=": true,
	}

	if !validOps[op] {
		return fmt.Errorf("unsupported operator: %s (supported: >, <, >=, <=, ==, !=)", op)
	}

	return nil
}
