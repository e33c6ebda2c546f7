package models

import "errors"

var (
	ErrInvalidRuleID     = errors.New("invalid rule ID")
	ErrInvalidAssetID    = errors.New("invalid asset ID")
	ErrInvalidHistoryID  = errors.New("invalid history record ID")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrNoConditionBlocks = errors.New("rule must have at least one condition block")
	ErrInvalidMetric     = errors.New("invalid metric")
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrInvalidAction     = errors.New("invalid action")
	ErrRuleNotFound      = errors.New("rule not found")
)

// Error categories. Concrete errors wrap one of these so callers can classify with errors.Is.
var (
	// ErrConfiguration covers missing or inactive assets and malformed rule configs
	ErrConfiguration = errors.New("configuration error")
	// ErrDataInsufficiency covers missing data, incomplete windows and low activity
	ErrDataInsufficiency = errors.New("insufficient data")
	// ErrActionExecution covers provider failures, missing credentials and missing products
	ErrActionExecution = errors.New("action execution failed")
	// ErrPersistence covers history write failures
	ErrPersistence = errors.New("persistence error")
)
