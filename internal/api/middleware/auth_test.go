package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

type stubAuthService struct {
	authenticateFn func(ctx context.Context, token string) (*domain.User, error)
}

func (s *stubAuthService) Register(context.Context, ports.RegisterInput) (*domain.User, error) {
	panic("not used")
}

func (s *stubAuthService) Login(context.Context, string, string) (string, *domain.User, error) {
	panic("not used")
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return s.authenticateFn(ctx, token)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{authenticateFn: func(_ context.Context, token string) (*domain.User, error) {
		if token != "good-token" {
			t.Fatalf("unexpected token %q", token)
		}
		return &domain.User{ID: 1, Username: "alice", Role: domain.RoleUser, IsActive: true}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(stub)(func(c echo.Context) error {
		called = true
		if u := CurrentUser(c); u == nil || u.Username != "alice" {
			t.Fatalf("user not set: %+v", u)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	stub := &stubAuthService{authenticateFn: func(context.Context, string) (*domain.User, error) {
		t.Fatalf("Authenticate must not be called")
		return nil, nil
	}}

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "token-only"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		c := e.NewContext(req, httptest.NewRecorder())

		err := Auth(stub)(func(echo.Context) error {
			t.Fatalf("next must not be called for %q", header)
			return nil
		})(c)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("header %q: expected ErrUnauthorized, got %v", header, err)
		}
	}
}

func TestAuthMiddleware_PropagatesServiceError(t *testing.T) {
	for _, want := range []error{domain.ErrUnauthorized, domain.ErrInactiveUser} {
		stub := &stubAuthService{authenticateFn: func(context.Context, string) (*domain.User, error) {
			return nil, want
		}}

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "bearer t")
		c := e.NewContext(req, httptest.NewRecorder())

		err := Auth(stub)(func(echo.Context) error { return nil })(c)
		if !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	}
}
