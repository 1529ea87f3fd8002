// Package repository holds the task repository: the component that keeps the
// primary store, the cache and the search index loosely in sync.
//
// Reads are cache-aside. Writes go to the primary store first, then
// best-effort to the search index, then invalidate the cache. Searches go to
// the index and fall back to a substring query on the primary store whenever
// the index fails or finds nothing for the caller.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
	"github.com/sirpyerre/task-tracker/internal/pkg/metrics"
)

const (
	// CacheTTL applies to every cache entry kind.
	CacheTTL = 300 * time.Second
	// SearchSize caps the number of documents requested from the index.
	SearchSize = 100

	reindexWorkers = 8
	// loadTimeout bounds a shared primary store read on a cache miss.
	loadTimeout = 10 * time.Second
)

const (
	kindTask      = "task"
	kindUserTasks = "user_tasks"
	kindAllTasks  = "all_tasks"
)

// SearchFields weights title matches three times higher than description ones.
var SearchFields = []ports.SearchField{
	{Name: "title", Weight: 3},
	{Name: "description", Weight: 1},
}

// IndexMapping is the layout the search index is created with.
var IndexMapping = ports.IndexMapping{
	TextFields:    SearchFields,
	KeywordFields: []string{"owner_id", "priority"},
}

// Options tunes cache invalidation.
type Options struct {
	// InvalidateListPages deletes every cached listing page of the affected
	// owner, and every global listing page, after create/update/delete.
	// When false, listing pages are left to expire (bounded by CacheTTL).
	InvalidateListPages bool
}

// TaskRepository implements ports.TaskRepository.
type TaskRepository struct {
	store ports.TaskStore
	cache ports.Cache
	index ports.SearchIndex
	opts  Options
	log   zerolog.Logger

	loads singleflight.Group
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

func NewTaskRepository(
	store ports.TaskStore,
	cache ports.Cache,
	index ports.SearchIndex,
	opts Options,
	log zerolog.Logger,
) *TaskRepository {
	return &TaskRepository{
		store: store,
		cache: cache,
		index: index,
		opts:  opts,
		log:   log.With().Str("component", "task_repository").Logger(),
	}
}

// EnsureSearchIndex creates the search index if it is missing.
func (r *TaskRepository) EnsureSearchIndex(ctx context.Context) error {
	return r.index.EnsureIndex(ctx, IndexMapping)
}

// GetTask serves a single task cache-aside. Concurrent misses on the same id
// share one primary store read, and a caller giving up does not fail the
// others.
func (r *TaskRepository) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	key := TaskKey(id)

	var rec domain.TaskRecord
	if r.readCache(ctx, kindTask, key, &rec) {
		task, err := domain.FromRecord(rec)
		if err == nil {
			return &task, nil
		}
		r.log.Warn().Err(err).Str("key", key).Msg("discarding malformed cache entry")
	}

	// The read is shared by every caller waiting on key, so it runs detached
	// from the first caller's cancellation. Each caller still stops waiting
	// when its own context ends.
	loaded := r.loads.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("get"))
		defer timer.ObserveDuration()
		return r.store.FindByID(loadCtx, id)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-loaded:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	task := *res.Val.(*domain.Task)
	r.writeCache(ctx, key, domain.ToRecord(task))
	return &task, nil
}

// GetTasks serves one page of an owner's tasks cache-aside.
func (r *TaskRepository) GetTasks(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Task, error) {
	return r.listPage(ctx, kindUserTasks, UserTasksKey(ownerID, skip, limit), func() ([]domain.Task, error) {
		return r.store.ListByOwner(ctx, ownerID, skip, limit)
	})
}

// GetAllTasks serves one page of every task cache-aside.
func (r *TaskRepository) GetAllTasks(ctx context.Context, skip, limit int) ([]domain.Task, error) {
	return r.listPage(ctx, kindAllTasks, AllTasksKey(skip, limit), func() ([]domain.Task, error) {
		return r.store.ListAll(ctx, skip, limit)
	})
}

func (r *TaskRepository) listPage(ctx context.Context, kind, key string, load func() ([]domain.Task, error)) ([]domain.Task, error) {
	var recs []domain.TaskRecord
	if r.readCache(ctx, kind, key, &recs) {
		tasks, err := domain.FromRecords(recs)
		if err == nil {
			return tasks, nil
		}
		r.log.Warn().Err(err).Str("key", key).Msg("discarding malformed cache entry")
	}

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("list"))
	tasks, err := load()
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, key, domain.ToRecords(tasks))
	return tasks, nil
}

// CreateTask writes to the primary store and propagates the new record to the
// search index. No cache key is touched unless InvalidateListPages is set.
func (r *TaskRepository) CreateTask(ctx context.Context, draft domain.TaskDraft, ownerID int64) (*domain.Task, error) {
	task, err := r.store.Create(ctx, draft, ownerID)
	if err != nil {
		return nil, err
	}
	metrics.TaskMutationsTotal.WithLabelValues("create").Inc()

	steps := []func(context.Context){r.indexStep(*task)}
	if r.opts.InvalidateListPages {
		steps = append(steps, r.invalidateListsStep(ownerID))
	}
	r.propagate(ctx, steps...)

	return task, nil
}

// UpdateTask applies patch to the task owned by ownerID. The single-task
// cache entry is gone by the time UpdateTask returns.
func (r *TaskRepository) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch, ownerID int64) (*domain.Task, error) {
	task, err := r.store.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	task.Apply(patch)
	updated, err := r.store.Save(ctx, task)
	if err != nil {
		return nil, err
	}
	metrics.TaskMutationsTotal.WithLabelValues("update").Inc()

	steps := []func(context.Context){r.indexStep(*updated), r.invalidateStep(TaskKey(id))}
	if r.opts.InvalidateListPages {
		steps = append(steps, r.invalidateListsStep(ownerID))
	}
	r.propagate(ctx, steps...)

	return updated, nil
}

// DeleteTask removes the task owned by ownerID and returns it as it was.
func (r *TaskRepository) DeleteTask(ctx context.Context, id, ownerID int64) (*domain.Task, error) {
	task, err := r.store.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	metrics.TaskMutationsTotal.WithLabelValues("delete").Inc()

	steps := []func(context.Context){r.unindexStep(id), r.invalidateStep(TaskKey(id))}
	if r.opts.InvalidateListPages {
		steps = append(steps, r.invalidateListsStep(ownerID))
	}
	r.propagate(ctx, steps...)

	return task, nil
}

// SearchTasks ranks matches through the search index, keeps the caller's own
// documents and orders them by due date. Any index error, undecodable
// document, or an empty owner-filtered result falls back to a substring
// query on the primary store.
func (r *TaskRepository) SearchTasks(ctx context.Context, query string, ownerID int64) ([]domain.Task, error) {
	docs, err := r.index.Search(ctx, query, SearchFields, SearchSize)
	if err != nil {
		r.indexFailure(err).Str("query", query).Msg("search index query failed")
		metrics.SearchRequestsTotal.WithLabelValues("fallback_error").Inc()
		return r.fallbackSearch(ctx, query, ownerID)
	}

	owned := make([]domain.TaskRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.OwnerID == ownerID {
			owned = append(owned, doc)
		}
	}

	tasks, err := domain.FromRecords(owned)
	if err != nil {
		r.log.Error().Err(err).Str("query", query).Msg("search index returned a malformed document")
		metrics.SearchRequestsTotal.WithLabelValues("fallback_error").Inc()
		return r.fallbackSearch(ctx, query, ownerID)
	}
	if len(tasks) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("fallback_empty").Inc()
		return r.fallbackSearch(ctx, query, ownerID)
	}

	domain.SortByDueDate(tasks)
	metrics.SearchRequestsTotal.WithLabelValues("index").Inc()
	return tasks, nil
}

func (r *TaskRepository) fallbackSearch(ctx context.Context, query string, ownerID int64) ([]domain.Task, error) {
	r.log.Info().Str("query", query).Int64("owner_id", ownerID).Msg("falling back to primary store search")

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("search"))
	defer timer.ObserveDuration()
	return r.store.SearchSubstring(ctx, ownerID, query)
}

// ReindexAllTasks rebuilds the search index from the primary store with at
// most reindexWorkers documents in flight. Per-task failures are logged and
// skipped.
func (r *TaskRepository) ReindexAllTasks(ctx context.Context) (int, error) {
	if err := r.index.EnsureIndex(ctx, IndexMapping); err != nil {
		r.indexFailure(err).Msg("could not ensure search index before reindex")
	}

	timer := prometheus.NewTimer(metrics.StoreQueryDuration.WithLabelValues("all"))
	tasks, err := r.store.All(ctx)
	timer.ObserveDuration()
	if err != nil {
		return 0, err
	}

	var indexed atomic.Int64
	var g errgroup.Group
	g.SetLimit(reindexWorkers)
	for _, task := range tasks {
		g.Go(func() error {
			if err := r.index.Index(ctx, task.ID, domain.ToRecord(task)); err != nil {
				r.indexFailure(err).Int64("task_id", task.ID).Msg("failed to reindex task")
				metrics.IndexOperationsTotal.WithLabelValues("reindex", "error").Inc()
				return nil
			}
			metrics.IndexOperationsTotal.WithLabelValues("reindex", "ok").Inc()
			indexed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	count := int(indexed.Load())

	r.log.Info().Int("indexed", count).Int("total", len(tasks)).Msg("reindex finished")
	return count, nil
}

// ── best-effort helpers ───────────────────────────────────────────────────────

// propagate runs the post-write steps concurrently; none depends on another.
func (r *TaskRepository) propagate(ctx context.Context, steps ...func(context.Context)) {
	var g errgroup.Group
	for _, step := range steps {
		g.Go(func() error {
			step(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *TaskRepository) indexStep(task domain.Task) func(context.Context) {
	return func(ctx context.Context) {
		if err := r.index.Index(ctx, task.ID, domain.ToRecord(task)); err != nil {
			r.indexFailure(err).Int64("task_id", task.ID).Msg("failed to index task")
			metrics.IndexOperationsTotal.WithLabelValues("index", "error").Inc()
			return
		}
		metrics.IndexOperationsTotal.WithLabelValues("index", "ok").Inc()
	}
}

func (r *TaskRepository) unindexStep(id int64) func(context.Context) {
	return func(ctx context.Context) {
		if err := r.index.Delete(ctx, id); err != nil {
			r.indexFailure(err).Int64("task_id", id).Msg("failed to delete task from search index")
			metrics.IndexOperationsTotal.WithLabelValues("delete", "error").Inc()
			return
		}
		metrics.IndexOperationsTotal.WithLabelValues("delete", "ok").Inc()
	}
}

// indexFailure logs writes to a disabled index at debug level only.
func (r *TaskRepository) indexFailure(err error) *zerolog.Event {
	if errors.Is(err, domain.ErrSearchDisabled) {
		return r.log.Debug().Err(err)
	}
	return r.log.Error().Err(err)
}

func (r *TaskRepository) invalidateStep(key string) func(context.Context) {
	return func(ctx context.Context) {
		if err := r.cache.Delete(ctx, key); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("failed to invalidate cache entry")
			metrics.CacheWriteErrorsTotal.WithLabelValues("delete").Inc()
		}
	}
}

func (r *TaskRepository) invalidateListsStep(ownerID int64) func(context.Context) {
	return func(ctx context.Context) {
		for _, pattern := range []string{UserTasksPattern(ownerID), AllTasksPattern()} {
			n, err := r.cache.DeleteMatching(ctx, pattern)
			if err != nil {
				r.log.Warn().Err(err).Str("pattern", pattern).Msg("failed to invalidate cached pages")
				metrics.CacheWriteErrorsTotal.WithLabelValues("delete_matching").Inc()
				continue
			}
			r.log.Debug().Str("pattern", pattern).Int("removed", n).Msg("invalidated cached pages")
		}
	}
}

// readCache decodes the entry under key into dest. Any cache failure or
// undecodable payload counts as a miss.
func (r *TaskRepository) readCache(ctx context.Context, kind, key string, dest any) bool {
	data, found, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		metrics.CacheLookupsTotal.WithLabelValues(kind, "error").Inc()
		return false
	}
	if !found {
		metrics.CacheLookupsTotal.WithLabelValues(kind, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache entry is not valid JSON, treating as miss")
		metrics.CacheLookupsTotal.WithLabelValues(kind, "error").Inc()
		return false
	}
	metrics.CacheLookupsTotal.WithLabelValues(kind, "hit").Inc()
	return true
}

func (r *TaskRepository) writeCache(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := r.cache.Set(ctx, key, data, CacheTTL); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("failed to populate cache")
		metrics.CacheWriteErrorsTotal.WithLabelValues("set").Inc()
	}
}
