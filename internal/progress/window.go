package progress

import (
	"time"

	"github.com/corex/corex-api/internal/models"
)

// epoch is the lower bound for "total" windows: all historical activity.
var epoch = time.Unix(0, 0).UTC()

// Window resolves a goal period to the inclusive [start, end] aggregation
// window around now. Weeks start on Sunday. An unknown period behaves like
// "total". Pure function.
func Window(period string, now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	loc := now.Location()

	switch period {
	case models.PeriodDaily:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case models.PeriodWeekly:
		sunday := now.AddDate(0, 0, -int(now.Weekday()))
		sy, sm, sd := sunday.Date()
		start = time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
		end = endOfDay(start.AddDate(0, 0, 6))
		return start, end
	case models.PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = endOfDay(start.AddDate(0, 1, -1))
		return start, end
	default: // total, and anything unrecognised
		start = epoch
	}

	return start, endOfDay(now)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
