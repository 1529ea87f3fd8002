package ports

import (
	"context"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// TaskStore is the primary, authoritative task persistence. It is the only
// component allowed to assign ids and timestamps. Every method is atomic.
type TaskStore interface {
	// Create inserts a task owned by ownerID, filling id, created_at and the
	// due_date/priority defaults.
	Create(ctx context.Context, draft domain.TaskDraft, ownerID int64) (*domain.Task, error)
	// FindByID returns domain.ErrTaskNotFound when no task has the id.
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	// FindOwned is FindByID additionally scoped to ownerID.
	FindOwned(ctx context.Context, id, ownerID int64) (*domain.Task, error)
	// Save persists the mutable fields of an existing task.
	Save(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
	// ListByOwner and ListAll return a page ordered by due_date ascending.
	ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Task, error)
	ListAll(ctx context.Context, skip, limit int) ([]domain.Task, error)
	// SearchSubstring matches query case-insensitively against title OR
	// description, scoped to ownerID, ordered by due_date ascending.
	SearchSubstring(ctx context.Context, ownerID int64, query string) ([]domain.Task, error)
	// All returns every task, used to rebuild the search index.
	All(ctx context.Context) ([]domain.Task, error)
}
