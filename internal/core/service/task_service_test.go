package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubTaskRepo struct {
	tasks      map[int64]domain.Task
	nextID     int64
	lastSkip   int
	lastLimit  int
	lastQuery  string
	reindexed  int
	reindexErr error
}

func newStubTaskRepo() *stubTaskRepo {
	return &stubTaskRepo{tasks: make(map[int64]domain.Task), nextID: 1}
}

func (r *stubTaskRepo) GetTask(_ context.Context, id int64) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (r *stubTaskRepo) GetTasks(_ context.Context, ownerID int64, skip, limit int) ([]domain.Task, error) {
	r.lastSkip, r.lastLimit = skip, limit
	var out []domain.Task
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *stubTaskRepo) GetAllTasks(_ context.Context, skip, limit int) ([]domain.Task, error) {
	r.lastSkip, r.lastLimit = skip, limit
	var out []domain.Task
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (r *stubTaskRepo) CreateTask(_ context.Context, d domain.TaskDraft, ownerID int64) (*domain.Task, error) {
	t := domain.Task{ID: r.nextID, Title: d.Title, Description: d.Description, Priority: domain.PriorityNormal, OwnerID: ownerID}
	r.tasks[t.ID] = t
	r.nextID++
	return &t, nil
}

// UpdateTask and DeleteTask enforce ownership like the real repository.
func (r *stubTaskRepo) UpdateTask(_ context.Context, id int64, p domain.TaskPatch, ownerID int64) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	t.Apply(p)
	r.tasks[id] = t
	return &t, nil
}

func (r *stubTaskRepo) DeleteTask(_ context.Context, id, ownerID int64) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return &t, nil
}

func (r *stubTaskRepo) SearchTasks(_ context.Context, query string, ownerID int64) ([]domain.Task, error) {
	r.lastQuery = query
	return nil, nil
}

func (r *stubTaskRepo) ReindexAllTasks(context.Context) (int, error) {
	if r.reindexErr != nil {
		return 0, r.reindexErr
	}
	r.reindexed++
	return len(r.tasks), nil
}

var (
	alice = &domain.User{ID: 1, Username: "alice", IsActive: true, Role: domain.RoleUser}
	bob   = &domain.User{ID: 2, Username: "bob", IsActive: true, Role: domain.RoleUser}
	root  = &domain.User{ID: 3, Username: "root", IsActive: true, Role: domain.RoleAdmin}
)

func newTestTaskService() (*TaskService, *stubTaskRepo) {
	repo := newStubTaskRepo()
	return NewTaskService(repo, zerolog.Nop()), repo
}

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTaskService_CreateTask_Validation(t *testing.T) {
	svc, repo := newTestTaskService()

	if _, err := svc.CreateTask(context.Background(), alice, domain.TaskDraft{Title: "  "}); !errors.Is(err, domain.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
	if _, err := svc.CreateTask(context.Background(), alice, domain.TaskDraft{Title: "x", Priority: "urgent"}); !errors.Is(err, domain.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for bad priority, got %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Fatalf("invalid drafts must not reach the repository")
	}
}

func TestTaskService_OwnershipMismatchLooksLikeAbsence(t *testing.T) {
	svc, _ := newTestTaskService()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, alice, domain.TaskDraft{Title: "alice's"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	_, foreignGet := svc.GetTask(ctx, bob, task.ID)
	_, missingGet := svc.GetTask(ctx, bob, 999)
	_, foreignUpdate := svc.UpdateTask(ctx, bob, task.ID, domain.TaskPatch{Completed: ptr(true)})
	_, foreignDelete := svc.DeleteTask(ctx, bob, task.ID)

	for name, err := range map[string]error{
		"get":     foreignGet,
		"missing": missingGet,
		"update":  foreignUpdate,
		"delete":  foreignDelete,
	} {
		if err != domain.ErrTaskNotFound {
			t.Errorf("%s: expected bare ErrTaskNotFound, got %v", name, err)
		}
	}

	got, err := svc.GetTask(ctx, alice, task.ID)
	if err != nil || got.Completed {
		t.Fatalf("owner view = %+v, %v", got, err)
	}
}

func TestTaskService_ListTasks_NormalizesPage(t *testing.T) {
	svc, repo := newTestTaskService()

	cases := []struct{ skip, limit, wantSkip, wantLimit int }{
		{0, 0, 0, 100},
		{-5, 10, 0, 10},
		{20, 5000, 20, 1000},
	}
	for _, c := range cases {
		if _, err := svc.ListTasks(context.Background(), alice, c.skip, c.limit); err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if repo.lastSkip != c.wantSkip || repo.lastLimit != c.wantLimit {
			t.Errorf("(%d,%d) -> (%d,%d), want (%d,%d)", c.skip, c.limit, repo.lastSkip, repo.lastLimit, c.wantSkip, c.wantLimit)
		}
	}
}

func TestTaskService_AdminOperations(t *testing.T) {
	svc, repo := newTestTaskService()
	ctx := context.Background()

	if _, err := svc.ListAllTasks(ctx, alice, 0, 10); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ListAllTasks as user: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ReindexAll(ctx, alice); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ReindexAll as user: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ReindexAll(ctx, nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("ReindexAll anonymous: expected ErrUnauthorized, got %v", err)
	}
	if repo.reindexed != 0 {
		t.Fatalf("reindex must not run for non-admins")
	}

	_, _ = svc.CreateTask(ctx, alice, domain.TaskDraft{Title: "a"})
	_, _ = svc.CreateTask(ctx, bob, domain.TaskDraft{Title: "b"})

	all, err := svc.ListAllTasks(ctx, root, 0, 10)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListAllTasks as admin = %d tasks, %v", len(all), err)
	}
	n, err := svc.ReindexAll(ctx, root)
	if err != nil || n != 2 {
		t.Fatalf("ReindexAll = %d, %v", n, err)
	}
}

func TestTaskService_ReindexAll_WrapsStoreFailure(t *testing.T) {
	svc, repo := newTestTaskService()
	repo.reindexErr = errors.New("db down")

	if _, err := svc.ReindexAll(context.Background(), root); err == nil || !errors.Is(err, repo.reindexErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestTaskService_SearchTasks(t *testing.T) {
	svc, repo := newTestTaskService()

	if _, err := svc.SearchTasks(context.Background(), alice, "   "); !errors.Is(err, domain.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for empty query, got %v", err)
	}
	if _, err := svc.SearchTasks(context.Background(), alice, "  milk "); err != nil {
		t.Fatalf("SearchTasks: %v", err)
	}
	if repo.lastQuery != "milk" {
		t.Fatalf("query = %q, want trimmed", repo.lastQuery)
	}
}
