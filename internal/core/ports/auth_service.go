package ports

import (
	"context"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// Login returns a bearer token for the user.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	// Authenticate resolves a bearer token to an active user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}
