package ports

import (
	"context"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// UserRepository persists accounts. Lookups return domain.ErrUserNotFound
// on absence; Create returns domain.ErrUserExists on a uniqueness violation.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
