package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

type TaskService struct {
	repo   ports.TaskRepository
	logger zerolog.Logger
}

var _ ports.TaskService = (*TaskService)(nil)

func NewTaskService(repo ports.TaskRepository, logger zerolog.Logger) *TaskService {
	return &TaskService{repo: repo, logger: logger}
}

func (s *TaskService) CreateTask(ctx context.Context, owner *domain.User, draft domain.TaskDraft) (*domain.Task, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	task, err := s.repo.CreateTask(ctx, draft, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info().Int64("task_id", task.ID).Int64("owner_id", owner.ID).Msg("task created")
	return task, nil
}

// GetTask returns domain.ErrTaskNotFound both for a missing task and for a
// task that belongs to another user.
func (s *TaskService) GetTask(ctx context.Context, owner *domain.User, id int64) (*domain.Task, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}

	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != owner.ID {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, owner *domain.User, skip, limit int) ([]domain.Task, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}
	skip, limit = normalizePage(skip, limit)
	return s.repo.GetTasks(ctx, owner.ID, skip, limit)
}

func (s *TaskService) ListAllTasks(ctx context.Context, caller *domain.User, skip, limit int) ([]domain.Task, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	skip, limit = normalizePage(skip, limit)
	return s.repo.GetAllTasks(ctx, skip, limit)
}

func (s *TaskService) UpdateTask(ctx context.Context, owner *domain.User, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	task, err := s.repo.UpdateTask(ctx, id, patch, owner.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	s.logger.Info().Int64("task_id", id).Int64("owner_id", owner.ID).Msg("task updated")
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, owner *domain.User, id int64) (*domain.Task, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}

	task, err := s.repo.DeleteTask(ctx, id, owner.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	s.logger.Info().Int64("task_id", id).Int64("owner_id", owner.ID).Msg("task deleted")
	return task, nil
}

func (s *TaskService) SearchTasks(ctx context.Context, owner *domain.User, query string) ([]domain.Task, error) {
	if owner == nil {
		return nil, domain.ErrUnauthorized
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidTask)
	}
	return s.repo.SearchTasks(ctx, query, owner.ID)
}

func (s *TaskService) ReindexAll(ctx context.Context, caller *domain.User) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}

	n, err := s.repo.ReindexAllTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("reindex tasks: %w", err)
	}
	s.logger.Info().Int("indexed", n).Str("by", caller.Username).Msg("search index rebuilt")
	return n, nil
}

func requireAdmin(caller *domain.User) error {
	if caller == nil {
		return domain.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// normalizePage clamps pagination into [0, ∞) × (0, MaxLimit].
func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = ports.DefaultSkip
	}
	switch {
	case limit <= 0:
		limit = ports.DefaultLimit
	case limit > ports.MaxLimit:
		limit = ports.MaxLimit
	}
	return skip, limit
}
