package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/task-tracker/internal/api/middleware"
	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// ctxUser returns the caller injected by the Auth middleware. A missing user
// means the route was registered without Auth; report it as unauthenticated
// rather than reaching the service with a nil owner.
func ctxUser(c echo.Context) (*domain.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
