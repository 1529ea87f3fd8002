package repository

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory primary store
// ---------------------------------------------------------------------------

type fakeStore struct {
	mu     sync.Mutex
	tasks  map[int64]domain.Task
	nextID int64
	reads  int // FindByID calls
	err    error

	// When gate is set, FindByID signals entered and then waits for gate to
	// close or for its context to end.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[int64]domain.Task), nextID: 1}
}

func (s *fakeStore) Create(_ context.Context, d domain.TaskDraft, ownerID int64) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t := domain.Task{
		ID:          s.nextID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, int(s.nextID), time.UTC),
		Priority:    domain.PriorityNormal,
		OwnerID:     ownerID,
	}
	t.DueDate = t.CreatedAt
	if d.DueDate != nil {
		t.DueDate = d.DueDate.UTC()
	}
	if d.Priority != "" {
		t.Priority = d.Priority
	}
	s.tasks[t.ID] = t
	s.nextID++
	return &t, nil
}

func (s *fakeStore) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	if s.gate != nil {
		s.entered <- struct{}{}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (s *fakeStore) FindOwned(_ context.Context, id, ownerID int64) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (s *fakeStore) Save(_ context.Context, t *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.tasks[t.ID] = *t
	out := *t
	return &out, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeStore) sorted(keep func(domain.Task) bool) []domain.Task {
	out := []domain.Task{}
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func page(tasks []domain.Task, skip, limit int) []domain.Task {
	if skip > len(tasks) {
		return []domain.Task{}
	}
	end := skip + limit
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[skip:end]
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID int64, skip, limit int) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return page(s.sorted(func(t domain.Task) bool { return t.OwnerID == ownerID }), skip, limit), nil
}

func (s *fakeStore) ListAll(_ context.Context, skip, limit int) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return page(s.sorted(func(domain.Task) bool { return true }), skip, limit), nil
}

func (s *fakeStore) SearchSubstring(_ context.Context, ownerID int64, query string) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	q := strings.ToLower(query)
	return s.sorted(func(t domain.Task) bool {
		return t.OwnerID == ownerID &&
			(strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q))
	}), nil
}

func (s *fakeStore) All(_ context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.sorted(func(domain.Task) bool { return true }), nil
}

// ---------------------------------------------------------------------------
// In-memory cache
// ---------------------------------------------------------------------------

var errCacheDown = errors.New("connection refused")

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	down    bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, false, errCacheDown
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errCacheDown
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errCacheDown
	}
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errCacheDown
	}
	var keys []string
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (c *fakeCache) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	keys, err := c.KeysMatching(ctx, pattern)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return len(keys), nil
}

func (c *fakeCache) Ping(context.Context) error {
	if c.down {
		return errCacheDown
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// ---------------------------------------------------------------------------
// In-memory search index
// ---------------------------------------------------------------------------

type fakeIndex struct {
	mu        sync.Mutex
	docs      map[int64]domain.TaskRecord
	searchErr error
	writeErr  error
	searches  int
	lastSize  int
	lastField []ports.SearchField
	ensured   int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[int64]domain.TaskRecord)}
}

func (x *fakeIndex) EnsureIndex(context.Context, ports.IndexMapping) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ensured++
	return x.writeErr
}

func (x *fakeIndex) Index(_ context.Context, id int64, doc domain.TaskRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.writeErr != nil {
		return x.writeErr
	}
	x.docs[id] = doc
	return nil
}

func (x *fakeIndex) Delete(_ context.Context, id int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.writeErr != nil {
		return x.writeErr
	}
	delete(x.docs, id)
	return nil
}

// Search scores each document by summing the weights of the fields that
// contain the query, case-insensitively.
func (x *fakeIndex) Search(_ context.Context, query string, fields []ports.SearchField, size int) ([]domain.TaskRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.searches++
	x.lastSize = size
	x.lastField = fields
	if x.searchErr != nil {
		return nil, x.searchErr
	}

	type scored struct {
		doc   domain.TaskRecord
		score int
	}
	q := strings.ToLower(query)
	var hits []scored
	for _, d := range x.docs {
		score := 0
		for _, f := range fields {
			var v string
			switch f.Name {
			case "title":
				v = d.Title
			case "description":
				v = d.Description
			}
			if strings.Contains(strings.ToLower(v), q) {
				score += f.Weight
			}
		}
		if score > 0 {
			hits = append(hits, scored{d, score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})
	out := make([]domain.TaskRecord, 0, len(hits))
	for i, h := range hits {
		if i == size {
			break
		}
		out = append(out, h.doc)
	}
	return out, nil
}

func (x *fakeIndex) Ping(context.Context) error { return x.searchErr }

func (x *fakeIndex) doc(id int64) (domain.TaskRecord, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	d, ok := x.docs[id]
	return d, ok
}
