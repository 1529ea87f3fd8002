package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

const (
	statusOK          = "ok"
	statusDegraded    = "degraded"
	statusUnavailable = "unavailable"
	statusDisabled    = "disabled"
)

const defaultPingTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is one component probed by the readiness check. A failing
// critical dependency makes the service unavailable; any other failure only
// degrades it.
type Dependency struct {
	Name     string
	Critical bool
	Pinger   pinger
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type HealthHandler struct {
	deps    []Dependency
	timeout time.Duration
}

func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, timeout: defaultPingTimeout}
}

// Root handles GET /.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Welcome to TodoList API"})
}

// Liveness handles GET /health. It never touches dependencies.
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: statusOK})
}

// Readiness handles GET /health/ready. Dependencies are pinged concurrently.
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	results := make([]error, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			results[i] = dep.Pinger.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := healthResponse{Status: statusOK, Dependencies: make(map[string]string, len(h.deps))}
	code := http.StatusOK
	for i, dep := range h.deps {
		err := results[i]
		switch {
		case err == nil:
			resp.Dependencies[dep.Name] = statusOK
		case errors.Is(err, domain.ErrSearchDisabled):
			resp.Dependencies[dep.Name] = statusDisabled
		default:
			resp.Dependencies[dep.Name] = "error: " + err.Error()
			if dep.Critical {
				resp.Status = statusUnavailable
				code = http.StatusServiceUnavailable
			} else if resp.Status == statusOK {
				resp.Status = statusDegraded
			}
		}
	}
	return c.JSON(code, resp)
}
