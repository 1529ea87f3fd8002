package ports

import (
	"context"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// Pagination defaults shared by the transport and service layers.
const (
	DefaultSkip  = 0
	DefaultLimit = 100
	MaxLimit     = 1000
)

// TaskService enforces ownership on top of TaskRepository. A task owned by
// somebody else is reported exactly like a missing one.
type TaskService interface {
	CreateTask(ctx context.Context, owner *domain.User, draft domain.TaskDraft) (*domain.Task, error)
	GetTask(ctx context.Context, owner *domain.User, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context, owner *domain.User, skip, limit int) ([]domain.Task, error)
	// ListAllTasks and ReindexAll require an admin caller.
	ListAllTasks(ctx context.Context, caller *domain.User, skip, limit int) ([]domain.Task, error)
	UpdateTask(ctx context.Context, owner *domain.User, id int64, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, owner *domain.User, id int64) (*domain.Task, error)
	SearchTasks(ctx context.Context, owner *domain.User, query string) ([]domain.Task, error)
	ReindexAll(ctx context.Context, caller *domain.User) (int, error)
}
