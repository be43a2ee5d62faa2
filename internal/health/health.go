package health

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/joescharf/pulse/internal/models"
)

// RiskLevel summarizes how many risk factors a project carries.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// FactorKind identifies a risk condition.
type FactorKind string

const (
	FactorDeadline   FactorKind = "deadline"
	FactorOverdue    FactorKind = "overdue"
	FactorVelocity   FactorKind = "velocity"
	FactorUnassigned FactorKind = "unassigned"
)

// RiskFactor is one discrete condition contributing to an at-risk verdict.
type RiskFactor struct {
	Kind        FactorKind `json:"kind"`
	Description string     `json:"description"`
}

// UrgentTask is an open task with a deadline, ordered by that deadline.
type UrgentTask struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Assignee      string            `json:"assignee,omitempty"`
	Status        models.TaskStatus `json:"status"`
	Deadline      time.Time         `json:"deadline"`
	DaysRemaining int               `json:"daysRemaining"`
	Overdue       bool              `json:"overdue"`
}

// Metrics holds the raw numbers behind the verdict.
type Metrics struct {
	TotalTasks              int        `json:"totalTasks"`
	CompletedTasks          int        `json:"completedTasks"`
	InProgressTasks         int        `json:"inProgressTasks"`
	TodoTasks               int        `json:"todoTasks"`
	OverdueTasks            int        `json:"overdueTasks"`
	UnassignedTasks         int        `json:"unassignedTasks"`
	CompletionPercentage    int        `json:"completionPercentage"`
	TeamSize                int        `json:"teamSize"`
	TeamVelocity            float64    `json:"teamVelocity"`
	DefaultVelocity         bool       `json:"defaultVelocity"` // no usable completions; base rate assumed
	EstimatedDaysToComplete int        `json:"estimatedDaysToComplete"`
	EarliestDeadline        *time.Time `json:"earliestDeadline,omitempty"`
	DaysUntilDeadline       *int       `json:"daysUntilDeadline,omitempty"`
}

// Report is the health and risk verdict for a project.
type Report struct {
	ProjectID       string       `json:"projectId"`
	ProjectName     string       `json:"projectName"`
	EndDate         *time.Time   `json:"endDate,omitempty"`
	IsAtRisk        bool         `json:"isAtRisk"`
	RiskLevel       RiskLevel    `json:"riskLevel"`
	RiskFactors     []RiskFactor `json:"riskFactors"`
	UrgentTasks     []UrgentTask `json:"urgentTasks"`
	Metrics         Metrics      `json:"healthMetrics"`
	Recommendations []string     `json:"recommendations"`
	Message         string       `json:"message"`
}

// HasFactor reports whether the report carries a factor of the given kind.
func (r *Report) HasFactor(kind FactorKind) bool {
	for _, f := range r.RiskFactors {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// NoTasksMessage is reported for projects without any tasks.
const NoTasksMessage = "No tasks found for this project."

// OnTrackMessage is the recommendation given when no risk factor applies.
const OnTrackMessage = "Project is on track. Keep up the current pace."

// Analyzer computes velocity and risk for a project snapshot.
type Analyzer struct {
	DefaultRate        float64 // tasks/day per person when nothing has been completed
	MinVelocity        float64 // team velocity below this is a risk
	MaxUnassignedRatio float64 // unassigned share of open tasks above this is a risk
	UrgentLimit        int
}

// NewAnalyzer returns an Analyzer with the standard thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		DefaultRate:        0.5,
		MinVelocity:        0.3,
		MaxUnassignedRatio: 0.3,
		UrgentLimit:        5,
	}
}

// Analyze computes the health report of project from its full task list.
func (a *Analyzer) Analyze(project *models.Project, tasks []*models.Task, now time.Time) *Report {
	r := &Report{
		ProjectID:       project.ID,
		ProjectName:     project.Name,
		EndDate:         project.EndDate,
		RiskLevel:       RiskLow,
		RiskFactors:     []RiskFactor{},
		UrgentTasks:     []UrgentTask{},
		Recommendations: []string{},
	}
	m := &r.Metrics
	m.TeamSize = project.TeamSize()

	if len(tasks) == 0 {
		r.Message = NoTasksMessage
		return r
	}

	var earliest *time.Time
	for _, t := range tasks {
		m.TotalTasks++
		switch t.Status {
		case models.TaskStatusDone:
			m.CompletedTasks++
			continue
		case models.TaskStatusInProgress:
			m.InProgressTasks++
		default:
			m.TodoTasks++
		}
		if !t.IsAssigned() {
			m.UnassignedTasks++
		}
		if t.IsOverdue(now) {
			m.OverdueTasks++
		}
		if t.Deadline != nil && (earliest == nil || t.Deadline.Before(*earliest)) {
			earliest = t.Deadline
		}
	}
	m.CompletionPercentage = int(math.Round(100 * float64(m.CompletedTasks) / float64(m.TotalTasks)))

	baseRate, measured := a.completionRate(project, tasks)
	m.DefaultVelocity = !measured
	velocity := baseRate * float64(m.TeamSize)
	m.TeamVelocity = round2(velocity)

	remaining := m.TodoTasks + m.InProgressTasks
	daysNeeded := estimateDays(remaining, velocity)
	m.EstimatedDaysToComplete = int(math.Ceil(daysNeeded))

	// Factors are collected in recommendation order.
	if m.OverdueTasks > 0 {
		r.RiskFactors = append(r.RiskFactors, RiskFactor{
			Kind:        FactorOverdue,
			Description: fmt.Sprintf("%d %s overdue", m.OverdueTasks, plural(m.OverdueTasks, "task is", "tasks are")),
		})
		r.Recommendations = append(r.Recommendations,
			fmt.Sprintf("Resolve the %d overdue %s first: reassign, re-scope, or renegotiate the deadline.", m.OverdueTasks, plural(m.OverdueTasks, "task", "tasks")))
	}

	if earliest != nil {
		e := *earliest
		m.EarliestDeadline = &e
		daysLeft := models.DaysUntil(e, now)
		m.DaysUntilDeadline = &daysLeft

		if models.FractionalDays(e, now) < daysNeeded {
			r.RiskFactors = append(r.RiskFactors, RiskFactor{
				Kind: FactorDeadline,
				Description: fmt.Sprintf("Earliest deadline is in %d %s but about %d %s of work remain",
					daysLeft, plural(daysLeft, "day", "days"), m.EstimatedDaysToComplete, plural(m.EstimatedDaysToComplete, "day", "days")),
			})
			r.Recommendations = append(r.Recommendations,
				"Deadline pressure is high: cut scope for the next deadline or add people to the critical tasks.")
		}
	}

	if velocity < a.MinVelocity {
		r.RiskFactors = append(r.RiskFactors, RiskFactor{
			Kind:        FactorVelocity,
			Description: fmt.Sprintf("Low team velocity (%.2f tasks/day)", velocity),
		})
		r.Recommendations = append(r.Recommendations,
			"Velocity is low: split large tasks, unblock in-progress work, and check team capacity.")
	}

	if remaining > 0 && float64(m.UnassignedTasks)/float64(remaining) > a.MaxUnassignedRatio {
		r.RiskFactors = append(r.RiskFactors, RiskFactor{
			Kind:        FactorUnassigned,
			Description: fmt.Sprintf("%d of %d open tasks are unassigned", m.UnassignedTasks, remaining),
		})
		r.Recommendations = append(r.Recommendations,
			fmt.Sprintf("Assign owners to the %d unassigned %s.", m.UnassignedTasks, plural(m.UnassignedTasks, "task", "tasks")))
	}

	r.IsAtRisk = len(r.RiskFactors) > 0
	switch {
	case len(r.RiskFactors) > 2:
		r.RiskLevel = RiskHigh
	case r.IsAtRisk:
		r.RiskLevel = RiskMedium
	}
	if !r.IsAtRisk {
		r.Recommendations = append(r.Recommendations, OnTrackMessage)
	}

	r.UrgentTasks = a.urgentTasks(tasks, now)
	r.Message = fmt.Sprintf("%d of %d tasks completed (%d%%)", m.CompletedTasks, m.TotalTasks, m.CompletionPercentage)
	return r
}

// completionRate returns completed tasks per day over the completion span.
// The span starts at the earlier of project start and first completion and
// ends at the last completion, counted in calendar days with a floor of one.
// Done tasks without a timestamp are left out. The bool is false when no
// completion could be measured and the default rate applies.
func (a *Analyzer) completionRate(project *models.Project, tasks []*models.Task) (float64, bool) {
	var first, last time.Time
	completed := 0
	for _, t := range tasks {
		at, ok := t.CompletedAt()
		if !ok {
			continue
		}
		if completed == 0 || at.Before(first) {
			first = at
		}
		if completed == 0 || at.After(last) {
			last = at
		}
		completed++
	}
	if completed == 0 {
		return a.DefaultRate, false
	}

	start := first
	if !project.CreatedAt.IsZero() && project.CreatedAt.Before(start) {
		start = project.CreatedAt
	}
	elapsed := int(models.StartOfDay(last).Sub(models.StartOfDay(start)).Hours() / 24)
	if elapsed < 1 {
		elapsed = 1
	}
	return float64(completed) / float64(elapsed), true
}

func (a *Analyzer) urgentTasks(tasks []*models.Task, now time.Time) []UrgentTask {
	var withDeadline []*models.Task
	for _, t := range tasks {
		if t.IsOpen() && t.Deadline != nil {
			withDeadline = append(withDeadline, t)
		}
	}
	sort.SliceStable(withDeadline, func(i, j int) bool {
		return withDeadline[i].Deadline.Before(*withDeadline[j].Deadline)
	})
	if len(withDeadline) > a.UrgentLimit {
		withDeadline = withDeadline[:a.UrgentLimit]
	}

	urgent := make([]UrgentTask, 0, len(withDeadline))
	for _, t := range withDeadline {
		urgent = append(urgent, UrgentTask{
			ID:            t.ID,
			Title:         t.Title,
			Assignee:      t.Assignee,
			Status:        t.Status,
			Deadline:      *t.Deadline,
			DaysRemaining: models.DaysUntil(*t.Deadline, now),
			Overdue:       t.Deadline.Before(now),
		})
	}
	return urgent
}

// estimateDays projects how long the remaining tasks take at velocity.
// Without velocity each task is assumed to take two days.
func estimateDays(remaining int, velocity float64) float64 {
	if remaining == 0 {
		return 0
	}
	if velocity > 0 {
		return float64(remaining) / velocity
	}
	return float64(remaining) * 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
