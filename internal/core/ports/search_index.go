package ports

import (
	"context"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// SearchField names a document field to match and its relevance weight.
type SearchField struct {
	Name   string
	Weight int
}

// IndexMapping describes the searchable layout of the task index.
type IndexMapping struct {
	TextFields    []SearchField
	KeywordFields []string
}

// SearchIndex is a best-effort, disposable copy of task records used for
// ranked full-text lookup. Every failure wraps domain.ErrSearchUnavailable.
type SearchIndex interface {
	// EnsureIndex creates the index if it does not exist yet.
	EnsureIndex(ctx context.Context, mapping IndexMapping) error
	// Index upserts the document stored under id.
	Index(ctx context.Context, id int64, doc domain.TaskRecord) error
	Delete(ctx context.Context, id int64) error
	// Search returns at most size documents, most relevant first.
	Search(ctx context.Context, query string, fields []SearchField, size int) ([]domain.TaskRecord, error)
	Ping(ctx context.Context) error
}
