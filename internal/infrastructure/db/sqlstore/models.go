package sqlstore

import (
	"time"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

type userRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Email          string    `gorm:"size:255;not null;uniqueIndex"`
	Username       string    `gorm:"size:100;not null;uniqueIndex"`
	HashedPassword string    `gorm:"size:255;not null"`
	IsActive       bool      `gorm:"not null"`
	Role           string    `gorm:"size:16;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:             r.ID,
		Email:          r.Email,
		Username:       r.Username,
		HashedPassword: r.HashedPassword,
		IsActive:       r.IsActive,
		Role:           r.Role,
	}
}

type taskRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:255;not null;index"`
	Description string    `gorm:"type:text"`
	Completed   bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	DueDate     time.Time `gorm:"not null;index"`
	Priority    string    `gorm:"size:16;not null"`
	OwnerID     int64     `gorm:"not null;index"`
}

func (taskRow) TableName() string { return "tasks" }

func (r taskRow) toDomain() domain.Task {
	return domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt.UTC(),
		DueDate:     r.DueDate.UTC(),
		Priority:    domain.Priority(r.Priority),
		OwnerID:     r.OwnerID,
	}
}

func toTasks(rows []taskRow) []domain.Task {
	out := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
