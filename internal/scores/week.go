package scores

import "time"

// Regular-season week bounds.
const (
	firstWeek = 1
	lastWeek  = 18
)

// WeekFor derives the competition week number from a date, given the
// season start (the Tuesday before the week 1 opener). Dates before the
// season clamp to week 1 and dates after the regular season clamp to
// week 18, so off-season requests still resolve to a cacheable key.
func WeekFor(now, seasonStart time.Time) int {
	days := int(now.Sub(seasonStart).Hours() / 24)
	week := days/7 + 1

	if week < firstWeek {
		return firstWeek
	}
	if week > lastWeek {
		return lastWeek
	}
	return week
}
