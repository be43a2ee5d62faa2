// Package burndown builds the daily remaining-work series of a project.
package burndown

import (
	"time"

	"github.com/joescharf/pulse/internal/models"
)

// Point is one day of the series. Projected points lie after today and carry
// the remaining count frozen at today's value.
type Point struct {
	Date           time.Time `json:"date"`
	RemainingTasks int       `json:"remainingTasks"`
	Projected      bool      `json:"projected"`
}

// Series is the burndown of a project from its start to its end date.
type Series struct {
	Points                []Point   `json:"points"`
	TotalInitialTasks     int       `json:"totalInitialTasks"`
	CurrentRemainingTasks int       `json:"currentRemainingTasks"`
	CompletedTasks        int       `json:"completedTasks"`
	ProjectStartDate      time.Time `json:"projectStartDate"`
	ProjectEndDate        time.Time `json:"projectEndDate"`
}

// Build walks each UTC day from the project start to the later of the latest
// task deadline and now.
//
// The baseline is the number of tasks that exist today, so tasks created
// after the project started still count from day one.
func Build(project *models.Project, tasks []*models.Task, now time.Time) *Series {
	s := &Series{Points: []Point{}}

	var live []*models.Task
	for _, t := range tasks {
		if t != nil {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return s
	}

	start := project.CreatedAt
	end := now
	for _, t := range live {
		if !t.CreatedAt.IsZero() && t.CreatedAt.Before(start) {
			start = t.CreatedAt
		}
		if t.Deadline != nil && t.Deadline.After(end) {
			end = *t.Deadline
		}
	}
	first, last, today := models.StartOfDay(start), models.StartOfDay(end), models.StartOfDay(now)

	completedOn := make(map[time.Time]int)
	for _, t := range live {
		if t.Status != models.TaskStatusDone {
			continue
		}
		s.CompletedTasks++
		at, ok := t.CompletedAt()
		if !ok {
			continue
		}
		d := models.StartOfDay(at)
		if d.Before(first) {
			d = first
		}
		completedOn[d]++
	}

	s.TotalInitialTasks = len(live)
	s.CurrentRemainingTasks = s.TotalInitialTasks - s.CompletedTasks
	s.ProjectStartDate = first
	s.ProjectEndDate = last

	remaining := s.TotalInitialTasks
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		projected := d.After(today)
		if !projected {
			remaining -= completedOn[d]
		}
		s.Points = append(s.Points, Point{Date: d, RemainingTasks: remaining, Projected: projected})
	}
	return s
}
