package metrics

import (
	"fmt"
	"sync"

	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
)

// Registry manages metric computers
type Registry struct {
	mu        sync.RWMutex
	computers map[string]MetricComputer
	ordered   []MetricComputer // registration order
}

// NewRegistry creates a new metric registry and registers built-in metrics
func NewRegistry() *Registry {
	registry := &Registry{
		computers: make(map[string]MetricComputer),
		ordered:   make([]MetricComputer, 0),
	}

	// Register built-in metric computers
	registry.registerBuiltInMetrics()

	return registry
}

// Register registers a metric computer
func (r *Registry) Register(computer MetricComputer) error {
	if computer == nil {
		return fmt.Errorf("computer cannot be nil")
	}

	name := computer.Name()
	if name == "" {
		return fmt.Errorf("computer name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.computers[name]; exists {
		return fmt.Errorf("computer with name %q already registered", name)
	}

	r.computers[name] = computer
	r.ordered = append(r.ordered, computer)

	return nil
}

// Names returns the registered metric names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ordered))
	for _, c := range r.ordered {
		names = append(names, c.Name())
	}
	return names
}

// ComputeAll computes all registered metrics for one window, keyed by bare metric name
func (r *Registry) ComputeAll(totals *WindowTotals) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make(map[string]float64, len(r.ordered))
	for _, computer := range r.ordered {
		if value, ok := computer.Compute(totals); ok {
			metrics[computer.Name()] = value
		}
	}

	return metrics
}

// registerBuiltInMetrics registers all built-in metric computers
func (r *Registry) registerBuiltInMetrics() {
	// Raw counters
	r.Register(NewRawComputer(rules.MetricSpend, spendOf))
	r.Register(NewRawComputer(rules.MetricImpressions, impressionsOf))
	r.Register(NewRawComputer(rules.MetricReach, reachOf))
	r.Register(NewRawComputer(rules.MetricClicks, clicksOf))
	r.Register(NewRawComputer(rules.MetricResults, resultsOf))
	r.Register(NewRawComputer(rules.MetricRevenue, revenueOf))

	// Delivery ratios
	r.Register(NewRatioComputer(rules.MetricCTR, clicksOf, impressionsOf, 100))
	r.Register(NewRatioComputer(rules.MetricCPC, spendOf, clicksOf, 1))
	r.Register(NewRatioComputer(rules.MetricCPM, spendOf, impressionsOf, 1000))

	// Revenue based. roas is compared against thresholds like 1.0, so it is not rounded.
	r.Register(NewExactRatioComputer(rules.MetricROAS, revenueOf, spendOf, 1))
	r.Register(&ProfitComputer{})
}
