package models

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// StartOfDay truncates t to midnight of its UTC calendar day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the whole days from now until t, rounded down. A deadline
// one hour in the past yields -1; one hour in the future yields 0.
func DaysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

// FractionalDays returns the signed distance from now to t in days.
func FractionalDays(t, now time.Time) float64 {
	return float64(t.Sub(now)) / float64(day)
}
