package repository

import (
	"context"
	"time"

	"projectboard/internal/domain"
)

// ProjectRepository exposes persistence operations for Project aggregates.
// Create and Update report per-owner name collisions through the store's
// own uniqueness constraint so concurrent writers cannot both succeed.
type ProjectRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, project *domain.Project) (int64, error)
	Update(ctx context.Context, project *domain.Project) error
	Complete(ctx context.Context, id int64, completedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Project, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Project, error)
}

// NoteRepository manages the notes attached to a project.
type NoteRepository interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, projectID int64, notes []domain.Note) ([]domain.Note, error)
	ListByProject(ctx context.Context, projectID int64) ([]domain.Note, error)
	CountByProject(ctx context.Context, projectID int64) (int, error)
}
