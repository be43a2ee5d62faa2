// Package priority ranks open tasks by urgency.
package priority

import (
	"sort"
	"time"

	"github.com/joescharf/pulse/internal/models"
)

// Level is the urgency bucket assigned to a ranked task.
type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelHigh     Level = "HIGH"
	LevelMedium   Level = "MEDIUM"
	LevelLow      Level = "LOW"
)

// Reasons attached to a score.
const (
	ReasonOverdue    = "Overdue"
	ReasonDueToday   = "Due within 24 hours"
	ReasonDue3Days   = "Due within 3 days"
	ReasonDue7Days   = "Due within 7 days"
	ReasonNoDeadline = "No deadline set"
	ReasonInProgress = "Already in progress"
	ReasonUnassigned = "Unassigned"
)

// criticalThreshold forces CRITICAL on any score above it.
const criticalThreshold = 70

// RankedTask is a task annotated with its priority.
type RankedTask struct {
	Task    *models.Task `json:"task"`
	Score   int          `json:"priorityScore"`
	Level   Level        `json:"priorityLevel"`
	Reasons []string     `json:"reasons"`
}

// HasReason reports whether reason contributed to the score.
func (r RankedTask) HasReason(reason string) bool {
	for _, x := range r.Reasons {
		if x == reason {
			return true
		}
	}
	return false
}

// Score ranks the open tasks, highest score first. Done tasks are skipped.
// Ties keep their input order. A positive limit truncates the result.
func Score(tasks []*models.Task, limit int, now time.Time) []RankedTask {
	ranked := make([]RankedTask, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || !t.IsOpen() {
			continue
		}
		ranked = append(ranked, scoreTask(t, now))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func scoreTask(t *models.Task, now time.Time) RankedTask {
	r := RankedTask{Task: t, Level: LevelLow, Reasons: []string{}}

	// Deadline band: exactly one applies.
	if t.Deadline == nil {
		r.Score += 10
		r.Reasons = append(r.Reasons, ReasonNoDeadline)
	} else {
		left := t.Deadline.Sub(now)
		switch {
		case left < 0:
			r.Score += 100
			r.Level = LevelCritical
			r.Reasons = append(r.Reasons, ReasonOverdue)
		case left <= 24*time.Hour:
			r.Score += 80
			r.Level = LevelCritical
			r.Reasons = append(r.Reasons, ReasonDueToday)
		case left <= 3*24*time.Hour:
			r.Score += 60
			r.Level = LevelHigh
			r.Reasons = append(r.Reasons, ReasonDue3Days)
		case left <= 7*24*time.Hour:
			r.Score += 40
			r.Level = LevelMedium
			r.Reasons = append(r.Reasons, ReasonDue7Days)
		default:
			r.Score += 20
		}
	}

	if t.Status == models.TaskStatusInProgress {
		r.Score += 30
		r.Reasons = append(r.Reasons, ReasonInProgress)
	}
	if !t.IsAssigned() {
		r.Score += 15
		r.Reasons = append(r.Reasons, ReasonUnassigned)
	}

	if r.Score > criticalThreshold {
		r.Level = LevelCritical
	}
	return r
}
