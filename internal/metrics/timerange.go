package metrics

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// Window is an inclusive range of calendar days in the bot timezone
type Window struct {
	From time.Time // midnight of the first day
	To   time.Time // midnight of the last day
}

// Contains reports whether day (a midnight) falls inside the window
func (w Window) Contains(day time.Time) bool {
	return !day.Before(w.From) && !day.After(w.To)
}

// End returns the exclusive end instant of the window
func (w Window) End() time.Time {
	return w.To.AddDate(0, 0, 1)
}

var lifetimeStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// rangeDays maps last_Nd ranges to N
var rangeDays = map[models.TimeRange]int{
	models.RangeLast3d:  3,
	models.RangeLast7d:  7,
	models.RangeLast14d: 14,
	models.RangeLast30d: 30,
}

// WindowFor converts a time range into a concrete window relative to today.
// last_Nd covers the N complete days before today.
func WindowFor(tr models.TimeRange, today time.Time) (Window, error) {
	today = StartOfDay(today)
	switch tr {
	case models.RangeToday:
		return Window{From: today, To: today}, nil
	case models.RangeYesterday:
		y := today.AddDate(0, 0, -1)
		return Window{From: y, To: y}, nil
	case models.RangeLifetime:
		start := time.Date(lifetimeStart.Year(), lifetimeStart.Month(), lifetimeStart.Day(), 0, 0, 0, 0, today.Location())
		return Window{From: start, To: today}, nil
	}

	if n, ok := rangeDays[tr]; ok {
		return Window{From: today.AddDate(0, 0, -n), To: today.AddDate(0, 0, -1)}, nil
	}
	return Window{}, fmt.Errorf("%w: %q", models.ErrInvalidTimeRange, tr)
}

// RequiredDays returns how many complete historical days a range needs before it can be trusted
func RequiredDays(tr models.TimeRange) int {
	if tr == models.RangeYesterday {
		return 1
	}
	return rangeDays[tr]
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
