package rules

import (
	"encoding/json"
	"fmt"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// ParseConfig decodes the JSON config column of a rule and fills defaults
func ParseConfig(data []byte) (*models.RuleConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("rule config is empty")
	}

	var cfg models.RuleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DecodeRule turns a stored rule row into a validated Rule.
// Any failure is a configuration error.
func DecodeRule(rec *models.RuleRecord) (*models.Rule, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: rule cannot be nil", models.ErrConfiguration)
	}

	cfg, err := ParseConfig(rec.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", models.ErrConfiguration, rec.ID, err)
	}

	rule := &models.Rule{
		ID:        rec.ID,
		UserID:    rec.UserID,
		AssetID:   rec.AssetID,
		Name:      rec.Name,
		IsActive:  rec.IsActive,
		Status:    rec.Status,
		Blocks:    cfg.Blocks,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	if err := ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", models.ErrConfiguration, rec.ID, err)
	}

	return rule, nil
}

// applyDefaults fills fields the admin UI may omit
func applyDefaults(cfg *models.RuleConfig) {
	for bi := range cfg.Blocks {
		block := &cfg.Blocks[bi]
		if block.Logic == "" {
			block.Logic = models.LogicAndOrAnd
		}
		if block.Name == "" {
			block.Name = fmt.Sprintf("Block %d", bi+1)
		}
		for gi := range block.Groups {
			for ci := range block.Groups[gi].Conditions {
				cond := &block.Groups[gi].Conditions[ci]
				kind, ok := KindOf(cond.Metric)
				if !ok {
					continue
				}
				if kind == KindRanged && cond.TimeRange == "" {
					cond.TimeRange = models.RangeToday
				}
				if kind != KindRanged {
					cond.TimeRange = ""
				}
			}
		}
		for ai := range block.Actions {
			action := &block.Actions[ai]
			if action.TimePeriod == "" {
				action.TimePeriod = models.PeriodEverytime
			}
			if action.ChangeType == "" {
				action.ChangeType = models.ChangePercent
			}
		}
	}
}

// EncodeRule builds a storable record from a rule, validating it first
func EncodeRule(rule *models.Rule) (*models.RuleRecord, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule cannot be nil")
	}
	if err := ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}

	data, err := json.Marshal(models.RuleConfig{Blocks: rule.Blocks})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule config: %w", err)
	}

	return &models.RuleRecord{
		ID:        rule.ID,
		UserID:    rule.UserID,
		AssetID:   rule.AssetID,
		Name:      rule.Name,
		IsActive:  rule.IsActive,
		Status:    rule.Status,
		Config:    data,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}, nil
}
