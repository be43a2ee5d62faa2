package chat

import (
	"math"
	"time"

	"github.com/joescharf/pulse/internal/models"
)

// Direction is the week-over-week movement of chat volume.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// trendThreshold is the percent change needed to leave "stable".
const trendThreshold = 10

// Trend compares the latest 7 days with the 7 days before them.
type Trend struct {
	Direction  Direction `json:"direction"`
	Percentage float64   `json:"percentage"`
	Latest     int       `json:"latestWeekMessages"`
	Previous   int       `json:"previousWeekMessages"`
}

// TrendReport holds the 7, 14 and 30 day windows and the derived trend.
type TrendReport struct {
	Week      *Summary `json:"last7Days"`
	Fortnight *Summary `json:"last14Days"`
	Month     *Summary `json:"last30Days"`
	Trend     Trend    `json:"trend"`
}

// Trends analyzes the standard windows ending at now.
func Trends(roster []string, messages []*models.Message, now time.Time) *TrendReport {
	r := &TrendReport{
		Week:      Analyze(roster, messages, 7, now),
		Fortnight: Analyze(roster, messages, 14, now),
		Month:     Analyze(roster, messages, 30, now),
	}
	r.Trend = compare(r.Week.Stats.TotalMessages, r.Fortnight.Stats.TotalMessages-r.Week.Stats.TotalMessages)
	return r
}

// compare derives the trend. Growth from an empty previous week is reported
// as 0% rather than as an unbounded ratio.
func compare(latest, previous int) Trend {
	t := Trend{Direction: DirectionStable, Latest: latest, Previous: previous}
	if previous == 0 {
		return t
	}
	pct := float64(latest-previous) / float64(previous) * 100
	switch {
	case pct > trendThreshold:
		t.Direction = DirectionIncreasing
	case pct < -trendThreshold:
		t.Direction = DirectionDecreasing
	}
	// only the reported value is rounded
	t.Percentage = math.Round(pct*10) / 10
	return t
}
