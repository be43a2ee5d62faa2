package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRoster(t *testing.T) {
	p := &Project{
		TeamLead: "lead",
		Members:  []string{"ana", "bo", "lead"},
		Mentors:  []string{"mia", "bo"},
	}

	assert.Equal(t, []string{"lead", "ana", "bo", "mia"}, p.Roster())
	assert.Equal(t, 3, p.TeamSize(), "distinct lead and members")
}

func TestProjectTeamSize_NoLead(t *testing.T) {
	p := &Project{Members: []string{"a", "b"}}
	assert.Equal(t, 2, p.TeamSize())
}

func TestProjectValidate(t *testing.T) {
	now := time.Now()
	before := now.Add(-time.Hour)

	var nilProject *Project
	assert.ErrorIs(t, nilProject.Validate(), ErrInvalid)
	assert.ErrorIs(t, (&Project{CreatedAt: now}).Validate(), ErrInvalid)
	assert.ErrorIs(t, (&Project{ID: "p"}).Validate(), ErrInvalid)
	assert.ErrorIs(t, (&Project{ID: "p", CreatedAt: now, EndDate: &before}).Validate(), ErrInvalid)
	assert.NoError(t, (&Project{ID: "p", CreatedAt: now}).Validate())
}

func TestValidateTasks(t *testing.T) {
	ok := &Task{ID: "t1", ProjectID: "p", Status: TaskStatusToDo}

	assert.NoError(t, ValidateTasks("p", []*Task{ok}))
	assert.NoError(t, ValidateTasks("p", nil))

	err := ValidateTasks("p", []*Task{ok, {ID: "t2", Status: "blocked"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "t2")
	assert.Contains(t, err.Error(), "blocked")

	err = ValidateTasks("p", []*Task{{ID: "t3", ProjectID: "other", Status: TaskStatusDone}})
	assert.ErrorIs(t, err, ErrInvalid)

	assert.ErrorIs(t, ValidateTasks("p", []*Task{nil}), ErrInvalid)
}

func TestValidateTasks_DoneWithoutTimestampIsTolerated(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskStatusDone}
	assert.NoError(t, ValidateTasks("", []*Task{task}))

	_, ok := task.CompletedAt()
	assert.False(t, ok)
}

func TestValidateMessages(t *testing.T) {
	now := time.Now()
	assert.NoError(t, ValidateMessages("p", []*Message{{ID: "m", Sender: "a", Timestamp: now}}))
	assert.ErrorIs(t, ValidateMessages("p", []*Message{{ID: "m", Timestamp: now}}), ErrInvalid)
	assert.ErrorIs(t, ValidateMessages("p", []*Message{{ID: "m", Sender: "a"}}), ErrInvalid)
	assert.ErrorIs(t, ValidateMessages("p", []*Message{{ID: "m", ProjectID: "x", Sender: "a", Timestamp: now}}), ErrInvalid)
}

func TestTaskPredicates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	open := &Task{Status: TaskStatusInProgress, Deadline: &past}
	assert.True(t, open.IsOpen())
	assert.True(t, open.IsOverdue(now))
	assert.False(t, open.IsAssigned())

	done := &Task{Status: TaskStatusDone, Deadline: &past, UpdatedAt: now}
	assert.False(t, done.IsOverdue(now))
	at, ok := done.CompletedAt()
	assert.True(t, ok)
	assert.Equal(t, now, at)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{"one hour ago", now.Add(-time.Hour), -1},
		{"two days ago", now.Add(-48 * time.Hour), -2},
		{"in one hour", now.Add(time.Hour), 0},
		{"in 36 hours", now.Add(36 * time.Hour), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.in, now))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, 3, 10, 23, 59, 0, 0, time.FixedZone("X", -3*3600))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestValidationError_Message(t *testing.T) {
	err := InvalidParam("limit", -1, "must not be negative")
	assert.Equal(t, "invalid parameter: limit must not be negative (got -1)", err.Error())
}
