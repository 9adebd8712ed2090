package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"projectboard/internal/domain"
	"projectboard/internal/repository"
)

// ProjectInput carries the mutable project attributes.
type ProjectInput struct {
	Name        string
	Description string
	DueOn       time.Time
}

// ProjectService gates every project operation by the acting user's
// identity before it reaches the store. actorID == 0 means no actor.
// A non-owner never learns whether a project exists: forbidden and
// not-found resolve to the same caller-side redirect.
type ProjectService interface {
	List(ctx context.Context, actorID int64) ([]domain.Project, error)
	Create(ctx context.Context, actorID int64, input ProjectInput) (*domain.Project, error)
	Get(ctx context.Context, actorID, id int64) (*domain.Project, error)
	Update(ctx context.Context, actorID, id int64, input ProjectInput) (*domain.Project, error)
	Delete(ctx context.Context, actorID, id int64) error
	Complete(ctx context.Context, actorID, id int64) (*domain.Project, error)
	AddNotes(ctx context.Context, actorID, projectID int64, messages []string) ([]domain.Note, error)
	Notes(ctx context.Context, actorID, projectID int64) ([]domain.Note, error)
}

type projectService struct {
	projects repository.ProjectRepository
	notes    repository.NoteRepository
	now      func() time.Time
}

func NewProjectService(projects repository.ProjectRepository, notes repository.NoteRepository) ProjectService {
	return &projectService{
		projects: projects,
		notes:    notes,
		now:      time.Now,
	}
}

func (s *projectService) List(ctx context.Context, actorID int64) ([]domain.Project, error) {
	if actorID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	return s.projects.ListByOwner(ctx, actorID)
}

func (s *projectService) Create(ctx context.Context, actorID int64, input ProjectInput) (*domain.Project, error) {
	if actorID <= 0 {
		return nil, domain.ErrUnauthenticated
	}

	// presence before uniqueness
	if strings.TrimSpace(input.Name) == "" {
		verr := domain.NewValidationError()
		verr.Add("name", domain.MsgBlank)
		return nil, verr
	}

	project := &domain.Project{
		OwnerID:     actorID,
		Name:        input.Name,
		Description: input.Description,
		DueOn:       input.DueOn,
	}

	if _, err := s.projects.Create(ctx, project); err != nil {
		return nil, mapNameCollision(err)
	}
	return project, nil
}

func (s *projectService) Get(ctx context.Context, actorID, id int64) (*domain.Project, error) {
	project, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	notes, err := s.notes.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.Notes = notes
	return project, nil
}

func (s *projectService) Update(ctx context.Context, actorID, id int64, input ProjectInput) (*domain.Project, error) {
	project, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) == "" {
		verr := domain.NewValidationError()
		verr.Add("name", domain.MsgBlank)
		return nil, verr
	}

	project.Name = input.Name
	project.Description = input.Description
	project.DueOn = input.DueOn

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, mapNameCollision(err)
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, actorID, id int64) error {
	project, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return err
	}
	return s.projects.Delete(ctx, project.ID)
}

// Complete transitions a pending project to completed. Completing an
// already-completed project is a no-op success; the original timestamp is
// kept. A persistence failure leaves the marker absent and reports
// ErrCompletionFailed.
func (s *projectService) Complete(ctx context.Context, actorID, id int64) (*domain.Project, error) {
	project, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if project.Completed() {
		return project, nil
	}

	completedAt := s.now().UTC()
	if err := s.projects.Complete(ctx, project.ID, completedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompletionFailed, err)
	}

	project.CompletedAt = &completedAt
	return project, nil
}

func (s *projectService) AddNotes(ctx context.Context, actorID, projectID int64, messages []string) ([]domain.Note, error) {
	project, err := s.authorize(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	notes := make([]domain.Note, 0, len(messages))
	for _, message := range messages {
		notes = append(notes, domain.Note{Message: message})
	}
	return s.notes.Append(ctx, project.ID, notes)
}

func (s *projectService) Notes(ctx context.Context, actorID, projectID int64) ([]domain.Note, error) {
	project, err := s.authorize(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	return s.notes.ListByProject(ctx, project.ID)
}

// authorize resolves the actor against the project's owner. Order matters:
// no actor beats everything else, then existence, then ownership.
func (s *projectService) authorize(ctx context.Context, actorID, id int64) (*domain.Project, error) {
	if actorID <= 0 {
		return nil, domain.ErrUnauthenticated
	}

	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actorID {
		return nil, domain.ErrForbidden
	}
	return project, nil
}

// mapNameCollision converts the store's uniqueness rejection into the
// field-level validation error; anything else passes through.
func mapNameCollision(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "already taken") {
		verr := domain.NewValidationError()
		verr.Add("name", domain.MsgTaken)
		return verr
	}
	return err
}
