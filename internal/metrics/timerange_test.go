package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

func TestWindowFor(t *testing.T) {
	today := time.Date(2025, 3, 12, 15, 45, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		tr       models.TimeRange
		from, to time.Time
		required int
	}{
		{models.RangeToday, day(12), day(12), 0},
		{models.RangeYesterday, day(11), day(11), 1},
		{models.RangeLast3d, day(9), day(11), 3},
		{models.RangeLast7d, day(5), day(11), 7},
		{models.RangeLast14d, time.Date(2025, 2, 26, 0, 0, 0, 0, time.UTC), day(11), 14},
		{models.RangeLast30d, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), day(11), 30},
		{models.RangeLifetime, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), day(12), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.tr), func(t *testing.T) {
			w, err := WindowFor(tt.tr, today)
			require.NoError(t, err)
			assert.True(t, tt.from.Equal(w.From), "from = %s", w.From)
			assert.True(t, tt.to.Equal(w.To), "to = %s", w.To)
			assert.Equal(t, tt.required, RequiredDays(tt.tr))
		})
	}

	_, err := WindowFor("last_90d", today)
	assert.True(t, errors.Is(err, models.ErrInvalidTimeRange))
}

func TestWindow_Contains(t *testing.T) {
	today := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	w, _ := WindowFor(models.RangeLast7d, today)
	assert.False(t, w.Contains(today), "last_Nd never includes today")
	assert.True(t, w.Contains(today.AddDate(0, 0, -1)))
	assert.True(t, w.End().Equal(today))

	w, _ = WindowFor(models.RangeLifetime, today)
	assert.True(t, w.Contains(today))
}

func TestCalendarMetrics(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// Wednesday 14:30 UTC is Wednesday 23:30 in Tokyo
	now := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)
	m := CalendarMetrics(now, tokyo)
	assert.Equal(t, 23.0, m["current_hour"])
	assert.Equal(t, 3.0, m["current_day_of_week"])

	// Sunday maps to 7
	sunday := time.Date(2025, 3, 16, 0, 5, 0, 0, time.UTC)
	m = CalendarMetrics(sunday, time.UTC)
	assert.Equal(t, 0.0, m["current_hour"])
	assert.Equal(t, 7.0, m["current_day_of_week"])

	// Monday maps to 1
	m = CalendarMetrics(sunday.AddDate(0, 0, 1), time.UTC)
	assert.Equal(t, 1.0, m["current_day_of_week"])
}
