package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

// Listings are ordered by due date, then id for a stable page boundary.
const listOrder = "due_date ASC, id ASC"

type TaskStore struct {
	db *gorm.DB
}

var _ ports.TaskStore = (*TaskStore)(nil)

func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a task. created_at is now; due_date defaults to created_at
// and priority to normal.
func (s *TaskStore) Create(ctx context.Context, draft domain.TaskDraft, ownerID int64) (*domain.Task, error) {
	now := s.db.NowFunc()
	row := taskRow{
		Title:       draft.Title,
		Description: draft.Description,
		Completed:   draft.Completed,
		CreatedAt:   now,
		DueDate:     now,
		Priority:    string(domain.PriorityNormal),
		OwnerID:     ownerID,
	}
	if draft.DueDate != nil {
		row.DueDate = draft.DueDate.UTC()
	}
	if draft.Priority != "" {
		row.Priority = string(draft.Priority)
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	task := row.toDomain()
	return &task, nil
}

func (s *TaskStore) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *TaskStore) FindOwned(ctx context.Context, id, ownerID int64) (*domain.Task, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID))
}

func (s *TaskStore) first(q *gorm.DB) (*domain.Task, error) {
	var row taskRow
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	task := row.toDomain()
	return &task, nil
}

// Save writes the mutable columns of task. Identity, owner and created_at are
// never part of the statement.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	res := s.db.WithContext(ctx).
		Model(&taskRow{}).
		Where("id = ?", task.ID).
		Select("title", "description", "completed", "due_date", "priority").
		Updates(taskRow{
			Title:       task.Title,
			Description: task.Description,
			Completed:   task.Completed,
			DueDate:     task.DueDate.UTC(),
			Priority:    string(task.Priority),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return s.FindByID(ctx, task.ID)
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&taskRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Task, error) {
	return s.find(s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order(listOrder).Offset(skip).Limit(limit))
}

func (s *TaskStore) ListAll(ctx context.Context, skip, limit int) ([]domain.Task, error) {
	return s.find(s.db.WithContext(ctx).Order(listOrder).Offset(skip).Limit(limit))
}

// SearchSubstring matches query literally; LIKE wildcards in it are escaped.
func (s *TaskStore) SearchSubstring(ctx context.Context, ownerID int64, query string) ([]domain.Task, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return s.find(s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order(listOrder))
}

func (s *TaskStore) All(ctx context.Context) ([]domain.Task, error) {
	return s.find(s.db.WithContext(ctx).Order("id ASC"))
}

func (s *TaskStore) find(q *gorm.DB) ([]domain.Task, error) {
	var rows []taskRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return toTasks(rows), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
