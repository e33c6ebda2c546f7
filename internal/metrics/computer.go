package metrics

import (
	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// WindowTotals is the input for metric computation over one time range
type WindowTotals struct {
	models.AdTotals
	Revenue float64
}

// MetricComputer computes a metric value from window totals
type MetricComputer interface {
	// Name returns the bare metric name (e.g., "roas")
	Name() string

	// Compute computes the metric value from the totals
	// Returns (value, ok) where ok indicates if the metric could be computed
	Compute(totals *WindowTotals) (float64, bool)
}
