package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
)

// RawComputer exposes one raw counter of the window
type RawComputer struct {
	name  string
	field func(t *WindowTotals) float64
}

// NewRawComputer creates a computer that reads a counter without transformation
func NewRawComputer(name string, field func(t *WindowTotals) float64) *RawComputer {
	return &RawComputer{name: name, field: field}
}

func (c *RawComputer) Name() string { return c.name }

func (c *RawComputer) Compute(totals *WindowTotals) (float64, bool) {
	return c.field(totals), true
}

// RatioComputer computes num/den*scale rounded to 2 decimals; a zero denominator yields 0
type RatioComputer struct {
	name  string
	num   func(t *WindowTotals) float64
	den   func(t *WindowTotals) float64
	scale float64
	exact bool
}

// NewRatioComputer creates a ratio computer
func NewRatioComputer(name string, num, den func(t *WindowTotals) float64, scale float64) *RatioComputer {
	return &RatioComputer{name: name, num: num, den: den, scale: scale}
}

// NewExactRatioComputer creates a ratio computer that keeps full precision
func NewExactRatioComputer(name string, num, den func(t *WindowTotals) float64, scale float64) *RatioComputer {
	return &RatioComputer{name: name, num: num, den: den, scale: scale, exact: true}
}

func (c *RatioComputer) Name() string { return c.name }

func (c *RatioComputer) Compute(totals *WindowTotals) (float64, bool) {
	if c.exact {
		return Quotient(c.num(totals), c.den(totals), c.scale), true
	}
	return Ratio(c.num(totals), c.den(totals), c.scale), true
}

// ProfitComputer computes revenue - spend
// Metric name: profit
type ProfitComputer struct{}

func (c *ProfitComputer) Name() string { return rules.MetricProfit }

func (c *ProfitComputer) Compute(totals *WindowTotals) (float64, bool) {
	profit := decimal.NewFromFloat(totals.Revenue).Sub(decimal.NewFromFloat(totals.Spend))
	return profit.Round(2).InexactFloat64(), true
}

// Ratio returns num/den*scale rounded to 2 decimals, or 0 when den is 0
func Ratio(num, den, scale float64) float64 {
	return Round2(Quotient(num, den, scale))
}

// Quotient returns num/den*scale, or 0 when den is 0
func Quotient(num, den, scale float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * scale
}

// Round2 rounds half away from zero to 2 decimals
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func spendOf(t *WindowTotals) float64       { return t.Spend }
func impressionsOf(t *WindowTotals) float64 { return t.Impressions }
func reachOf(t *WindowTotals) float64       { return t.Reach }
func clicksOf(t *WindowTotals) float64      { return t.Clicks }
func resultsOf(t *WindowTotals) float64     { return t.Results }
func revenueOf(t *WindowTotals) float64     { return t.Revenue }
