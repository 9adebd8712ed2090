package domain

import "time"

// Project is a unit of work owned by exactly one user for its entire
// lifecycle. A nil CompletedAt means the project is still pending.
type Project struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	DueOn       time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Notes       []Note
}

// Note is a message attached to a project. Notes never outlive their
// project and keep insertion order.
type Note struct {
	ID        int64
	ProjectID int64
	Message   string
	CreatedAt time.Time
}

// Completed reports whether the project has been marked completed.
func (p *Project) Completed() bool {
	return p.CompletedAt != nil
}

// IsLate reports whether the project's due date has passed relative to
// today. Comparison is at calendar-date granularity; a project due today
// or later is not late. Lateness is independent of completion state.
func (p *Project) IsLate(today time.Time) bool {
	due := truncateToDate(p.DueOn)
	return due.Before(truncateToDate(today))
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
