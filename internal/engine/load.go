package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/store"
)

// Source supplies snapshots. store.SQLiteStore satisfies it.
type Source interface {
	store.ProjectStore
	store.TaskStore
	store.MessageStore
}

// ResolveProject finds a project by ID, then by name.
func ResolveProject(ctx context.Context, src store.ProjectStore, ref string) (*models.Project, error) {
	if ref == "" {
		return nil, models.InvalidParam("project", ref, "is required")
	}
	p, err := src.GetProject(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return src.GetProjectByName(ctx, ref)
}

// Load assembles the snapshot of the project identified by ref (ID or name).
// Messages older than since are left out; a zero since loads all of them.
func Load(ctx context.Context, src Source, ref string, since time.Time) (*Snapshot, error) {
	p, err := ResolveProject(ctx, src, ref)
	if err != nil {
		return nil, err
	}

	tasks, err := src.ListTasks(ctx, store.TaskFilter{ProjectID: p.ID})
	if err != nil {
		return nil, fmt.Errorf("load tasks of %s: %w", p.Name, err)
	}
	messages, err := src.ListMessages(ctx, store.MessageFilter{ProjectID: p.ID, Since: since})
	if err != nil {
		return nil, fmt.Errorf("load messages of %s: %w", p.Name, err)
	}
	return &Snapshot{Project: p, Tasks: tasks, Messages: messages}, nil
}
