package recommend

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pulse/internal/chat"
	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/priority"
)

var (
	start = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	now   = start.Add(14 * 24 * time.Hour)
)

func in(days float64) *time.Time {
	t := now.Add(time.Duration(days * float64(24*time.Hour)))
	return &t
}

func project() *models.Project {
	return &models.Project{ID: "p1", Name: "apollo", TeamLead: "lead", Members: []string{"ana", "bo"}, CreatedAt: start}
}

func input(p *models.Project, tasks []*models.Task, c *chat.Summary) Input {
	return Input{
		Health: health.NewAnalyzer().Analyze(p, tasks, now),
		Ranked: priority.Score(tasks, 0, now),
		Chat:   c,
		Now:    now,
	}
}

func riskyTasks() []*models.Task {
	return []*models.Task{
		{ID: "late", Title: "Fix login", Status: models.TaskStatusToDo, Deadline: in(-2)},
		{ID: "soon", Title: "Write docs", Status: models.TaskStatusInProgress, Assignee: "ana", Deadline: in(2.5)},
		{ID: "later", Title: "Polish UI", Status: models.TaskStatusToDo, Assignee: "bo", Deadline: in(5.5)},
		{ID: "far", Title: "Release", Status: models.TaskStatusToDo, Deadline: in(30)},
		{ID: "free", Title: "Refactor", Status: models.TaskStatusToDo},
	}
}

func TestDeterministic_RiskyProject(t *testing.T) {
	r := Deterministic(input(project(), riskyTasks(), nil))

	assert.Equal(t, SourceDeterministic, r.Source)
	require.NoError(t, r.Validate())
	assert.Contains(t, r.Summary, "apollo")
	assert.Contains(t, r.Summary, "0 of 5 tasks")

	require.Len(t, r.NextSteps, 5)
	assert.Contains(t, r.NextSteps[0], "overdue")
	assert.Contains(t, r.NextSteps[0], `"Fix login"`)
	assert.Contains(t, r.NextSteps[1], `"Write docs"`)
	assert.Contains(t, r.NextSteps[2], "in-progress")
	assert.Contains(t, r.NextSteps[3], "unassigned")
	assert.Contains(t, r.NextSteps[4], "top-priority")

	h := health.NewAnalyzer().Analyze(project(), riskyTasks(), now)
	require.Len(t, r.Risks, len(h.RiskFactors))
	for i, f := range h.RiskFactors {
		assert.Equal(t, f.Description, r.Risks[i].Risk)
		assert.NotEmpty(t, r.Risks[i].Mitigation)
	}
	assert.Equal(t, SeverityHigh, r.Risks[0].Severity)

	require.Len(t, r.DeadlineAlerts, 3, "the task due in 30 days is not alerted")
	assert.Equal(t, UrgencyCritical, r.DeadlineAlerts[0].Urgency)
	assert.Equal(t, UrgencyHigh, r.DeadlineAlerts[1].Urgency)
	assert.Equal(t, UrgencyMedium, r.DeadlineAlerts[2].Urgency)

	assert.False(t, r.TimelinePrediction.OnTrack)
	assert.Equal(t, ConfidenceLow, r.TimelinePrediction.Confidence)
	assert.Contains(t, r.TimelinePrediction.Reasoning, "passed 2 days ago")
	assert.Contains(t, r.ProcessImprovements, "Set deadlines on the 1 open task without one.")
}

func TestDeterministic_OnTrack(t *testing.T) {
	done := start.Add(3 * 24 * time.Hour)
	tasks := []*models.Task{
		{ID: "d1", Title: "Kickoff", Status: models.TaskStatusDone, Assignee: "ana", UpdatedAt: done},
		{ID: "d2", Title: "Design", Status: models.TaskStatusDone, Assignee: "bo", UpdatedAt: done},
		{ID: "t1", Title: "Build", Status: models.TaskStatusToDo, Assignee: "ana", Deadline: in(20)},
	}

	r := Deterministic(input(project(), tasks, nil))

	require.NoError(t, r.Validate())
	assert.Empty(t, r.Risks)
	assert.Empty(t, r.DeadlineAlerts)
	assert.Contains(t, r.Summary, health.OnTrackMessage)
	assert.True(t, r.TimelinePrediction.OnTrack)
	assert.Equal(t, ConfidenceHigh, r.TimelinePrediction.Confidence)
	require.NotNil(t, r.TimelinePrediction.EstimatedCompletion)
	assert.Equal(t, models.StartOfDay(now).AddDate(0, 0, 1), *r.TimelinePrediction.EstimatedCompletion)
	assert.Equal(t, []string{"Team workload looks balanced."}, r.TeamSuggestions)
}

func TestDeterministic_NoTasks(t *testing.T) {
	r := Deterministic(input(project(), nil, nil))

	require.NoError(t, r.Validate())
	assert.Contains(t, r.Summary, health.NoTasksMessage)
	assert.Len(t, r.NextSteps, 1)
	assert.Empty(t, r.Risks)
	assert.Nil(t, r.TimelinePrediction.EstimatedCompletion)
	assert.Equal(t, ConfidenceLow, r.TimelinePrediction.Confidence)
}

func TestDeterministic_NilHealth(t *testing.T) {
	r := Deterministic(Input{Now: now})
	assert.NoError(t, r.Validate())
	assert.NotNil(t, r.Risks)
}

func TestDeterministic_ChatSuggestions(t *testing.T) {
	p := project()
	msgs := []*models.Message{
		{ID: "m1", Sender: "lead", Content: "status?", Timestamp: now.Add(-time.Hour)},
	}
	c := chat.Analyze(p.Roster(), msgs, 7, now)

	r := Deterministic(input(p, riskyTasks(), c))

	assert.Contains(t, r.TeamSuggestions, "Only 33% of the team posted in chat recently; check in with quieter members.")
	assert.Contains(t, r.TeamSuggestions, "Reach out to ana, bo, who have not posted in the last 7 days.")
	assert.Contains(t, r.ProcessImprovements, "Post brief daily status updates in the project chat.")
}

func TestDeterministic_NextStepsCapped(t *testing.T) {
	var tasks []*models.Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, &models.Task{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("task %d", i),
			Status: models.TaskStatusInProgress, Deadline: in(float64(i - 5))})
	}
	r := Deterministic(input(project(), tasks, nil))
	assert.LessOrEqual(t, len(r.NextSteps), MaxNextSteps)
}

func TestUrgencyFor(t *testing.T) {
	assert.Equal(t, UrgencyCritical, urgencyFor(-1))
	assert.Equal(t, UrgencyHigh, urgencyFor(0))
	assert.Equal(t, UrgencyHigh, urgencyFor(3))
	assert.Equal(t, UrgencyMedium, urgencyFor(4))
}

func TestDeterministic_Idempotent(t *testing.T) {
	i := input(project(), riskyTasks(), nil)
	assert.Equal(t, Deterministic(i), Deterministic(i))
}
