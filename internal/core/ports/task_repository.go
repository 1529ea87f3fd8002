package ports

import (
	"context"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// TaskRepository composes the primary store, the cache and the search index.
// Cache and search degradation never surfaces through it; only primary store
// failures and domain.ErrTaskNotFound do.
type TaskRepository interface {
	// GetTask returns domain.ErrTaskNotFound when the task does not exist.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	GetTasks(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Task, error)
	GetAllTasks(ctx context.Context, skip, limit int) ([]domain.Task, error)
	CreateTask(ctx context.Context, draft domain.TaskDraft, ownerID int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch, ownerID int64) (*domain.Task, error)
	// DeleteTask returns the record as it was before deletion.
	DeleteTask(ctx context.Context, id, ownerID int64) (*domain.Task, error)
	SearchTasks(ctx context.Context, query string, ownerID int64) ([]domain.Task, error)
	// ReindexAllTasks returns how many tasks were indexed successfully.
	ReindexAllTasks(ctx context.Context) (int, error)
}
