package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/pulse/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter specifies filters for listing tasks.
type TaskFilter struct {
	ProjectID string
	Status    models.TaskStatus
	Assignee  string
}

// MessageFilter specifies filters for listing messages. A zero Since
// returns the whole history.
type MessageFilter struct {
	ProjectID string
	Since     time.Time
}

// ProjectStore reads projects.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
}

// TaskStore reads tasks.
type TaskStore interface {
	ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
}

// MessageStore reads chat messages.
type MessageStore interface {
	ListMessages(ctx context.Context, filter MessageFilter) ([]*models.Message, error)
}

// Store defines the persistence interface for pulse.
type Store interface {
	ProjectStore
	TaskStore
	MessageStore

	CreateProject(ctx context.Context, p *models.Project) error
	CreateTask(ctx context.Context, t *models.Task) error
	UpdateTask(ctx context.Context, t *models.Task) error
	CreateMessage(ctx context.Context, m *models.Message) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
