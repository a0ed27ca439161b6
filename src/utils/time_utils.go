package utils

import (
	"fmt"
	"time"
)

// ResetTime resets the time component based on the granularity specified.
// Pass "minute" to reset seconds to zero.
// Pass "hour" to reset minutes and seconds to zero.
// Pass "day" to reset the full time-of-day component (UTC day boundary).
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute) // Resets seconds to zero
	case "hour":
		return t.Truncate(time.Hour) // Resets minutes and seconds to zero
	case "day":
		u := t.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	default:
		fmt.Println("Invalid granularity. Please use 'minute', 'hour' or 'day'.")
		return t
	}
}

// NextDailyFire returns the next wall-clock occurrence of hour:minute
// strictly after now, in now's location.
func NextDailyFire(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
