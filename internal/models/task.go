package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the workflow state of a task.
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of work tracked for a project.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	ProjectID   string     `json:"projectId" yaml:"project_id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Status      TaskStatus `json:"status" yaml:"status"`
	Assignee    string     `json:"assignee,omitempty" yaml:"assignee"`
	Deadline    *time.Time `json:"deadline,omitempty" yaml:"deadline"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updated_at"` // completion time proxy once done
}

// IsOpen reports whether the task still needs work.
func (t *Task) IsOpen() bool {
	return t.Status != TaskStatusDone
}

// IsAssigned reports whether someone owns the task.
func (t *Task) IsAssigned() bool {
	return t.Assignee != ""
}

// CompletedAt returns the completion timestamp of a done task. The second
// return value is false for open tasks and for done tasks without a usable
// timestamp.
func (t *Task) CompletedAt() (time.Time, bool) {
	if t.Status != TaskStatusDone || t.UpdatedAt.IsZero() {
		return time.Time{}, false
	}
	return t.UpdatedAt, true
}

// IsOverdue reports whether an open task's deadline has passed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.IsOpen() && t.Deadline != nil && t.Deadline.Before(now)
}

// Validate checks the task for structural problems. Missing timestamps are
// tolerated and handled by the analyzers.
func (t *Task) Validate() error {
	if t == nil {
		return &ValidationError{Entity: "task", Reason: "is nil"}
	}
	if t.ID == "" {
		return &ValidationError{Entity: "task", Field: "id", Reason: "is empty"}
	}
	if !t.Status.Valid() {
		return &ValidationError{Entity: "task", ID: t.ID, Field: "status", Reason: fmt.Sprintf("unknown value %q", t.Status)}
	}
	return nil
}

// ValidateTasks validates every task and, when projectID is non-empty, that
// each task belongs to that project.
func ValidateTasks(projectID string, tasks []*Task) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if projectID != "" && t.ProjectID != "" && t.ProjectID != projectID {
			return &ValidationError{Entity: "task", ID: t.ID, Field: "projectId", Reason: fmt.Sprintf("belongs to %s, not %s", t.ProjectID, projectID)}
		}
	}
	return nil
}
