package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"projectboard/internal/domain"
	"projectboard/internal/repository"
)

// Insertion order is the only ordering notes have; the rowid preserves it.
const createNotesTable = `
CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id),
	message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) repository.NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNotesTable); err != nil {
		return fmt.Errorf("create notes table: %w", err)
	}
	return nil
}

func (r *NoteRepository) Append(ctx context.Context, projectID int64, notes []domain.Note) ([]domain.Note, error) {
	if len(notes) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append notes: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	appended := make([]domain.Note, 0, len(notes))
	for _, note := range notes {
		note.ProjectID = projectID
		note.CreatedAt = now

		res, err := tx.ExecContext(ctx, `
INSERT INTO notes (project_id, message, created_at)
VALUES (?, ?, ?)`,
			note.ProjectID,
			note.Message,
			note.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert note: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("note last insert id: %w", err)
		}
		note.ID = id
		appended = append(appended, note)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append notes: %w", err)
	}
	return appended, nil
}

func (r *NoteRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, project_id, message, created_at
FROM notes
WHERE project_id = ?
ORDER BY id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(&note.ID, &note.ProjectID, &note.Message, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func (r *NoteRepository) CountByProject(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}
