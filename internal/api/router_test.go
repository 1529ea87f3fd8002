package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirpyerre/task-tracker/internal/api/handler"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
	"github.com/sirpyerre/task-tracker/internal/core/repository"
	"github.com/sirpyerre/task-tracker/internal/core/service"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/cache/memory"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/db/mongo"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/db/sqlstore"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/security"
)

// testServer wires the real stack: sqlite in memory, the in-process cache and
// a disabled search index, so every search takes the store path.
func testServer(t *testing.T) (*echo.Echo, *service.AuthService) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = sqlstore.Close(db) })
	if err := sqlstore.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := zerolog.Nop()
	cache := memory.New(memory.DefaultConfig())
	index := mongo.DisabledIndex{}

	repo := repository.NewTaskRepository(sqlstore.NewTaskStore(db), cache, index, repository.Options{}, log)
	tasks := service.NewTaskService(repo, log)
	auth := service.NewAuthService(
		sqlstore.NewUserRepository(db),
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewJWTIssuer("test-secret", "task-tracker"),
		time.Hour,
		log,
	)

	registry := prometheus.NewRegistry()
	e := NewRouter(Deps{
		Tasks:  tasks,
		Auth:   auth,
		Logger: log,
		Health: []handler.Dependency{
			{Name: "database", Critical: true, Pinger: sqlstore.Pinger{DB: db}},
			{Name: "cache", Pinger: cache},
			{Name: "search", Pinger: index},
		},
		APIPrefix:   "/api/v1",
		CORSOrigins: []string{"http://localhost:3000"},
		Registerer:  registry,
		Gatherer:    registry,
	})
	return e, auth
}

type call struct {
	method, path, body, token string
	form                      url.Values
}

func do(t *testing.T, e *echo.Echo, c call) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	switch {
	case c.form != nil:
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	case c.body != "":
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	default:
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return v
}

func register(t *testing.T, e *echo.Echo, username string) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"pw-%s"}`, username, username, username)
	if rec := do(t, e, call{method: http.MethodPost, path: "/api/v1/auth/register", body: body}); rec.Code != http.StatusOK {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
}

func login(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := do(t, e, call{method: http.MethodPost, path: "/api/v1/auth/token",
		form: url.Values{"username": {username}, "password": {password}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	return decode[map[string]string](t, rec)["access_token"]
}

type task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	OwnerID     int64  `json:"owner_id"`
}

func TestRouter_TaskLifecycle(t *testing.T) {
	e, _ := testServer(t)
	register(t, e, "alice")
	token := login(t, e, "alice", "pw-alice")

	rec := do(t, e, call{method: http.MethodPost, path: "/api/v1/tasks/", token: token,
		body: `{"title":"Buy milk","priority":"high"}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[task](t, rec)
	if created.ID == 0 || created.Completed || created.Priority != "high" || created.DueDate == "" {
		t.Fatalf("created = %+v", created)
	}
	taskPath := fmt.Sprintf("/api/v1/tasks/%d", created.ID)

	got := decode[task](t, do(t, e, call{method: http.MethodGet, path: taskPath, token: token}))
	if got.ID != created.ID || got.Title != "Buy milk" || got.Completed || got.OwnerID != created.OwnerID {
		t.Fatalf("get = %+v, want %+v", got, created)
	}

	rec = do(t, e, call{method: http.MethodPut, path: taskPath, token: token, body: `{"completed":true}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	got = decode[task](t, do(t, e, call{method: http.MethodGet, path: taskPath, token: token}))
	if !got.Completed || got.Title != "Buy milk" {
		t.Fatalf("after update = %+v", got)
	}

	found := decode[[]task](t, do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks/search?query=MILK", token: token}))
	if len(found) != 1 || found[0].ID != created.ID {
		t.Fatalf("search = %+v", found)
	}

	list := decode[[]task](t, do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks?skip=0&limit=10", token: token}))
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = do(t, e, call{method: http.MethodDelete, path: taskPath, token: token})
	if rec.Code != http.StatusOK || decode[task](t, rec).ID != created.ID {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, call{method: http.MethodGet, path: taskPath, token: token})
	if rec.Code != http.StatusNotFound || decode[map[string]string](t, rec)["error"] != "Task not found" {
		t.Fatalf("get after delete: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_OwnershipIsolation(t *testing.T) {
	e, _ := testServer(t)
	register(t, e, "alice")
	register(t, e, "bob")
	aliceToken := login(t, e, "alice", "pw-alice")
	bobToken := login(t, e, "bob", "pw-bob")

	created := decode[task](t, do(t, e, call{method: http.MethodPost, path: "/api/v1/tasks", token: aliceToken,
		body: `{"title":"private"}`}))
	taskPath := fmt.Sprintf("/api/v1/tasks/%d", created.ID)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if rec := do(t, e, call{method: method, path: taskPath, token: bobToken}); rec.Code != http.StatusNotFound {
			t.Errorf("%s by other owner: %d", method, rec.Code)
		}
	}
	if rec := do(t, e, call{method: http.MethodPut, path: taskPath, token: bobToken, body: `{"title":"mine"}`}); rec.Code != http.StatusNotFound {
		t.Errorf("PUT by other owner: %d", rec.Code)
	}
	missing := do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks/99999", token: bobToken})
	stolen := do(t, e, call{method: http.MethodGet, path: taskPath, token: bobToken})
	if missing.Body.String() != stolen.Body.String() {
		t.Errorf("ownership mismatch distinguishable from absence: %s vs %s", stolen.Body.String(), missing.Body.String())
	}

	if found := decode[[]task](t, do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks/search?query=private", token: bobToken})); len(found) != 0 {
		t.Errorf("bob found alice's task: %+v", found)
	}
}

func TestRouter_AuthErrors(t *testing.T) {
	e, _ := testServer(t)
	register(t, e, "alice")

	rec := do(t, e, call{method: http.MethodPost, path: "/api/v1/auth/register",
		body: `{"username":"other","email":"alice@example.com","password":"x"}`})
	if rec.Code != http.StatusConflict || decode[map[string]string](t, rec)["error"] != "Email already registered" {
		t.Fatalf("duplicate email: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, e, call{method: http.MethodPost, path: "/api/v1/auth/register",
		body: `{"username":"alice","email":"new@example.com","password":"x"}`})
	if rec.Code != http.StatusConflict || decode[map[string]string](t, rec)["error"] != "Username already taken" {
		t.Fatalf("duplicate username: %d %s", rec.Code, rec.Body.String())
	}

	wrongPassword := do(t, e, call{method: http.MethodPost, path: "/api/v1/auth/token",
		form: url.Values{"username": {"alice"}, "password": {"nope"}}})
	unknownUser := do(t, e, call{method: http.MethodPost, path: "/api/v1/auth/token",
		form: url.Values{"username": {"mallory"}, "password": {"nope"}}})
	if wrongPassword.Code != http.StatusUnauthorized || wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("login failures must be indistinguishable: %s vs %s", wrongPassword.Body.String(), unknownUser.Body.String())
	}

	rec = do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks"})
	if rec.Code != http.StatusUnauthorized || rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
		t.Fatalf("missing token: %d %v", rec.Code, rec.Header())
	}
	rec = do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks", token: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rec.Code)
	}
}

func TestRouter_AdminRoutes(t *testing.T) {
	e, auth := testServer(t)
	register(t, e, "alice")
	userToken := login(t, e, "alice", "pw-alice")

	if _, err := auth.EnsureAdmin(context.Background(), ports.RegisterInput{
		Username: "root", Email: "root@example.com", Password: "pw-root",
	}); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	adminToken := login(t, e, "root", "pw-root")

	do(t, e, call{method: http.MethodPost, path: "/api/v1/tasks", token: userToken, body: `{"title":"one"}`})
	do(t, e, call{method: http.MethodPost, path: "/api/v1/tasks", token: userToken, body: `{"title":"two"}`})

	for _, path := range []string{"/api/v1/tasks/reindex", "/api/v1/tasks/all"} {
		if rec := do(t, e, call{method: http.MethodGet, path: path, token: userToken}); rec.Code != http.StatusForbidden {
			t.Errorf("%s as user: %d", path, rec.Code)
		}
	}

	all := decode[[]task](t, do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks/all", token: adminToken}))
	if len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}

	// The search index is disabled here, so nothing is indexed.
	rec := do(t, e, call{method: http.MethodGet, path: "/api/v1/tasks/reindex", token: adminToken})
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["message"] != "Successfully reindexed 0 tasks" {
		t.Fatalf("reindex: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_Validation(t *testing.T) {
	e, _ := testServer(t)
	register(t, e, "alice")
	token := login(t, e, "alice", "pw-alice")

	for _, c := range []call{
		{method: http.MethodPost, path: "/api/v1/tasks", body: `{"title":""}`},
		{method: http.MethodPost, path: "/api/v1/tasks", body: `{"title":"x","priority":"urgent"}`},
		{method: http.MethodPut, path: "/api/v1/tasks/1", body: `{"title":null}`},
		{method: http.MethodGet, path: "/api/v1/tasks/search"},
		{method: http.MethodGet, path: "/api/v1/tasks/abc"},
	} {
		c.token = token
		if rec := do(t, e, c); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s %s %s: %d %s", c.method, c.path, c.body, rec.Code, rec.Body.String())
		}
	}
}

func TestRouter_Operational(t *testing.T) {
	e, _ := testServer(t)

	rec := do(t, e, call{method: http.MethodGet, path: "/"})
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["message"] != "Welcome to TodoList API" {
		t.Fatalf("root: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, call{method: http.MethodGet, path: "/health/ready"})
	ready := decode[struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}](t, rec)
	if rec.Code != http.StatusOK || ready.Status != "ok" || ready.Dependencies["search"] != "disabled" || ready.Dependencies["database"] != "ok" {
		t.Fatalf("ready: %d %+v", rec.Code, ready)
	}

	do(t, e, call{method: http.MethodGet, path: "/health"})
	rec = do(t, e, call{method: http.MethodGet, path: "/metrics"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "tasks_http_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
