package health

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pulse/internal/models"
)

var (
	day0 = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	now  = day0.Add(10 * 24 * time.Hour)
)

func at(days float64) *time.Time {
	t := now.Add(time.Duration(days * float64(24*time.Hour)))
	return &t
}

func team(members ...string) *models.Project {
	return &models.Project{ID: "p1", Name: "apollo", TeamLead: "lead", Members: members, CreatedAt: day0}
}

func TestAnalyze_NoTasks(t *testing.T) {
	r := NewAnalyzer().Analyze(team("a"), nil, now)

	assert.False(t, r.IsAtRisk)
	assert.Equal(t, RiskLow, r.RiskLevel)
	assert.Empty(t, r.RiskFactors)
	assert.Empty(t, r.Recommendations)
	assert.Empty(t, r.UrgentTasks)
	assert.Equal(t, NoTasksMessage, r.Message)
}

func TestAnalyze_OnTrackWithoutCompletions(t *testing.T) {
	var tasks []*models.Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, &models.Task{ID: fmt.Sprintf("t%d", i), Status: models.TaskStatusToDo, Assignee: "a"})
	}

	r := NewAnalyzer().Analyze(team("a", "b"), tasks, now)

	assert.False(t, r.IsAtRisk)
	assert.Equal(t, RiskLow, r.RiskLevel)
	assert.Equal(t, []string{OnTrackMessage}, r.Recommendations)
	assert.True(t, r.Metrics.DefaultVelocity)
	assert.Equal(t, 1.5, r.Metrics.TeamVelocity, "default rate times team of three")
	assert.Equal(t, 7, r.Metrics.EstimatedDaysToComplete)
	assert.Equal(t, 10, r.Metrics.TodoTasks)
	assert.Equal(t, 0, r.Metrics.CompletionPercentage)
	assert.Nil(t, r.Metrics.DaysUntilDeadline)
}

func TestAnalyze_VelocityFromCompletions(t *testing.T) {
	done := day0.Add(3*24*time.Hour + 5*time.Hour)
	tasks := []*models.Task{
		{ID: "d1", Status: models.TaskStatusDone, Assignee: "a", UpdatedAt: done},
		{ID: "d2", Status: models.TaskStatusDone, Assignee: "a", UpdatedAt: done},
		{ID: "o1", Status: models.TaskStatusInProgress, Assignee: "a"},
		{ID: "o2", Status: models.TaskStatusToDo, Assignee: "b"},
	}

	r := NewAnalyzer().Analyze(team("a", "b"), tasks, now)

	assert.False(t, r.Metrics.DefaultVelocity)
	assert.Equal(t, 2.0, r.Metrics.TeamVelocity, "2 completions over 3 days times 3 people")
	assert.Equal(t, 50, r.Metrics.CompletionPercentage)
	assert.Equal(t, 1, r.Metrics.EstimatedDaysToComplete)
	assert.False(t, r.IsAtRisk)
}

func TestAnalyze_CompletionSpanFloorsAtOneDay(t *testing.T) {
	p := team()
	p.CreatedAt = now
	tasks := []*models.Task{
		{ID: "d1", Status: models.TaskStatusDone, UpdatedAt: now.Add(time.Hour)},
	}

	rate, measured := NewAnalyzer().completionRate(p, tasks)
	assert.True(t, measured)
	assert.Equal(t, 1.0, rate)
}

func TestAnalyze_DoneWithoutTimestampUsesDefaultRate(t *testing.T) {
	tasks := []*models.Task{
		{ID: "d1", Status: models.TaskStatusDone},
		{ID: "o1", Status: models.TaskStatusToDo, Assignee: "a"},
	}

	r := NewAnalyzer().Analyze(team(), tasks, now)
	assert.True(t, r.Metrics.DefaultVelocity)
	assert.Equal(t, 0.5, r.Metrics.TeamVelocity)
	assert.Equal(t, 1, r.Metrics.CompletedTasks)
}

func TestAnalyze_OverdueTask(t *testing.T) {
	tasks := []*models.Task{
		{ID: "late", Title: "Ship beta", Status: models.TaskStatusToDo, Assignee: "a", Deadline: at(-2)},
		{ID: "next", Status: models.TaskStatusToDo, Assignee: "a", Deadline: at(20)},
	}

	r := NewAnalyzer().Analyze(team("a"), tasks, now)

	require.True(t, r.IsAtRisk)
	assert.Equal(t, RiskMedium, r.RiskLevel)
	assert.True(t, r.HasFactor(FactorOverdue))
	assert.True(t, r.HasFactor(FactorDeadline), "past earliest deadline leaves no time")
	assert.Equal(t, 1, r.Metrics.OverdueTasks)
	require.NotNil(t, r.Metrics.DaysUntilDeadline)
	assert.Equal(t, -2, *r.Metrics.DaysUntilDeadline)
	assert.Contains(t, r.Recommendations[0], "overdue")
	assert.NotContains(t, r.Recommendations, OnTrackMessage)

	require.Len(t, r.UrgentTasks, 2)
	assert.Equal(t, "late", r.UrgentTasks[0].ID)
	assert.True(t, r.UrgentTasks[0].Overdue)
	assert.Equal(t, -2, r.UrgentTasks[0].DaysRemaining)
}

func TestAnalyze_DeadlinePressure(t *testing.T) {
	var tasks []*models.Task
	for i := 0; i < 6; i++ {
		tasks = append(tasks, &models.Task{ID: fmt.Sprintf("t%d", i), Status: models.TaskStatusToDo, Assignee: "lead", Deadline: at(2)})
	}

	// One person at the default rate needs 12 days for 6 tasks.
	r := NewAnalyzer().Analyze(team(), tasks, now)

	assert.True(t, r.IsAtRisk)
	require.Len(t, r.RiskFactors, 1)
	assert.Equal(t, FactorDeadline, r.RiskFactors[0].Kind)
	assert.Equal(t, RiskMedium, r.RiskLevel)
	assert.Equal(t, 12, r.Metrics.EstimatedDaysToComplete)
	assert.Contains(t, r.Recommendations[0], "Deadline pressure")
}

func TestAnalyze_HighRisk(t *testing.T) {
	p := &models.Project{ID: "p1", CreatedAt: day0} // nobody on the team
	tasks := []*models.Task{
		{ID: "t1", Status: models.TaskStatusToDo, Deadline: at(-1)},
		{ID: "t2", Status: models.TaskStatusInProgress},
	}

	r := NewAnalyzer().Analyze(p, tasks, now)

	assert.True(t, r.IsAtRisk)
	assert.Equal(t, RiskHigh, r.RiskLevel)
	assert.Len(t, r.RiskFactors, 4)
	assert.Equal(t, 0.0, r.Metrics.TeamVelocity)
	assert.Equal(t, 4, r.Metrics.EstimatedDaysToComplete, "two days per task without velocity")

	kinds := make([]FactorKind, 0, len(r.RiskFactors))
	for _, f := range r.RiskFactors {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []FactorKind{FactorOverdue, FactorDeadline, FactorVelocity, FactorUnassigned}, kinds)
	assert.Len(t, r.Recommendations, 4)
}

func TestAnalyze_UnassignedRatio(t *testing.T) {
	tasks := []*models.Task{
		{ID: "t1", Status: models.TaskStatusToDo},
		{ID: "t2", Status: models.TaskStatusToDo, Assignee: "a"},
		{ID: "t3", Status: models.TaskStatusToDo, Assignee: "a"},
		{ID: "t4", Status: models.TaskStatusDone}, // done tasks do not count
	}

	r := NewAnalyzer().Analyze(team("a", "b"), tasks, now)
	assert.True(t, r.HasFactor(FactorUnassigned), "1 of 3 open tasks exceeds the threshold")
	assert.Equal(t, 1, r.Metrics.UnassignedTasks)

	tasks = append(tasks,
		&models.Task{ID: "t5", Status: models.TaskStatusToDo, Assignee: "a"},
	)
	r = NewAnalyzer().Analyze(team("a", "b"), tasks, now)
	assert.False(t, r.HasFactor(FactorUnassigned), "1 of 4 is within threshold")
}

func TestAnalyze_UrgentTasksLimitedAndOrdered(t *testing.T) {
	var tasks []*models.Task
	for i := 7; i > 0; i-- {
		tasks = append(tasks, &models.Task{ID: fmt.Sprintf("t%d", i), Status: models.TaskStatusToDo, Assignee: "a", Deadline: at(float64(i * 10))})
	}
	tasks = append(tasks, &models.Task{ID: "done", Status: models.TaskStatusDone, Deadline: at(0.1), UpdatedAt: now})

	r := NewAnalyzer().Analyze(team("a", "b", "c", "d"), tasks, now)

	require.Len(t, r.UrgentTasks, 5)
	for i, u := range r.UrgentTasks {
		assert.Equal(t, fmt.Sprintf("t%d", i+1), u.ID)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	tasks := []*models.Task{
		{ID: "t1", Status: models.TaskStatusToDo, Deadline: at(1)},
		{ID: "t2", Status: models.TaskStatusDone, UpdatedAt: now.Add(-time.Hour)},
	}
	a := NewAnalyzer()
	assert.Equal(t, a.Analyze(team("a"), tasks, now), a.Analyze(team("a"), tasks, now))
}

func TestEstimateDays(t *testing.T) {
	assert.Equal(t, 0.0, estimateDays(0, 0))
	assert.Equal(t, 6.0, estimateDays(3, 0))
	assert.Equal(t, 2.0, estimateDays(3, 1.5))
}
