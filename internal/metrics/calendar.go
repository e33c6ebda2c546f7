package metrics

import (
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/rules"
)

// CalendarMetrics returns current_hour (0-23) and current_day_of_week (ISO, Monday=1 .. Sunday=7)
// for now in loc
func CalendarMetrics(now time.Time, loc *time.Location) models.MetricSnapshot {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)

	dow := int(local.Weekday())
	if dow == 0 {
		dow = 7
	}

	return models.MetricSnapshot{
		rules.MetricCurrentHour:      float64(local.Hour()),
		rules.MetricCurrentDayOfWeek: float64(dow),
	}
}
