package metrics

import (
	"fmt"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// Insufficiency reasons
const (
	ReasonNoMetrics            = "no metrics for this range"
	ReasonInsufficientDays     = "insufficient days"
	ReasonInsufficientActivity = "insufficient activity"
)

// MinResults is the minimum number of results a window needs to be evaluated
const MinResults = 2

// InsufficiencyError reports why a time range could not be resolved
type InsufficiencyError struct {
	TimeRange models.TimeRange
	Reason    string
	Required  int
	Available int
}

func (e *InsufficiencyError) Error() string {
	if e.Reason == ReasonInsufficientDays {
		return fmt.Sprintf("%s: %s: %d required, %d available", e.TimeRange, e.Reason, e.Required, e.Available)
	}
	return fmt.Sprintf("%s: %s", e.TimeRange, e.Reason)
}

// Unwrap lets callers classify the error with errors.Is(err, models.ErrDataInsufficiency)
func (e *InsufficiencyError) Unwrap() error {
	return models.ErrDataInsufficiency
}
