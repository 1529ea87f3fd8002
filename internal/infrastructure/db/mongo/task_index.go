package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

const (
	DefaultCollection = "tasks"
	textIndexName     = "task_text"
	textLanguage      = "english"
)

// searchDocument is the stored form of a search document: the task record
// keyed by the task id.
type searchDocument struct {
	ID                int64 `bson:"_id"`
	domain.TaskRecord `bson:",inline"`
}

func (d searchDocument) record() domain.TaskRecord {
	rec := d.TaskRecord
	rec.ID = d.ID
	return rec
}

// TaskIndex implements ports.SearchIndex on a MongoDB collection with a
// weighted text index. Matching is stemmed, case-insensitive and tolerant of
// small misspellings.
type TaskIndex struct {
	col     *mongo.Collection
	timeout time.Duration

	mu      sync.RWMutex
	weights map[string]int // text fields covered by the index
}

var _ ports.SearchIndex = (*TaskIndex)(nil)

func NewTaskIndex(db *mongo.Database, collection string, timeout time.Duration) *TaskIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TaskIndex{col: db.Collection(collection), timeout: timeout}
}

// EnsureIndex creates the weighted text index over mapping.TextFields and an
// ascending index per keyword field. Creating an index that already exists
// with the same definition is a no-op on the server.
func (x *TaskIndex) EnsureIndex(ctx context.Context, mapping ports.IndexMapping) error {
	if len(mapping.TextFields) == 0 {
		return fmt.Errorf("%w: mapping has no text fields", domain.ErrSearchUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*x.timeout)
	defer cancel()

	keys := bson.D{}
	weights := bson.D{}
	covered := make(map[string]int, len(mapping.TextFields))
	for _, f := range mapping.TextFields {
		keys = append(keys, bson.E{Key: f.Name, Value: "text"})
		weights = append(weights, bson.E{Key: f.Name, Value: f.Weight})
		covered[f.Name] = f.Weight
	}

	indexes := []mongo.IndexModel{{
		Keys: keys,
		Options: options.Index().
			SetName(textIndexName).
			SetWeights(weights).
			SetDefaultLanguage(textLanguage),
	}}
	for _, field := range mapping.KeywordFields {
		indexes = append(indexes, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
	}

	if _, err := x.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("%w: create indexes: %v", domain.ErrSearchUnavailable, err)
	}

	x.mu.Lock()
	x.weights = covered
	x.mu.Unlock()
	return nil
}

// Index upserts the document stored under id.
func (x *TaskIndex) Index(ctx context.Context, id int64, doc domain.TaskRecord) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	_, err := x.col.ReplaceOne(ctx,
		bson.M{"_id": id},
		searchDocument{ID: id, TaskRecord: doc},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: index task %d: %v", domain.ErrSearchUnavailable, id, err)
	}
	return nil
}

// Delete removes the document stored under id. Removing an absent document
// is not an error.
func (x *TaskIndex) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	if _, err := x.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("%w: delete task %d: %v", domain.ErrSearchUnavailable, id, err)
	}
	return nil
}

// Search returns at most size documents matching query. Documents found by
// the $text index come first, ordered by text score. When that pass leaves
// room, the remaining documents are matched term by term within an edit
// distance that grows with the term length, so misspellings still find their
// task. The text index carries its own weights, so every requested field must
// be covered by it with the same weight.
func (x *TaskIndex) Search(ctx context.Context, query string, fields []ports.SearchField, size int) ([]domain.TaskRecord, error) {
	if err := x.checkFields(fields); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	out, err := x.textSearch(ctx, query, size)
	if err != nil {
		return nil, err
	}
	if size > 0 && len(out) >= size {
		return out, nil
	}

	seen := make(bson.A, 0, len(out))
	for _, rec := range out {
		seen = append(seen, rec.ID)
	}
	remaining := 0
	if size > 0 {
		remaining = size - len(out)
	}
	fuzzy, err := x.fuzzySearch(ctx, newFuzzyMatcher(query, fields), seen, remaining)
	if err != nil {
		return nil, err
	}
	return append(out, fuzzy...), nil
}

func (x *TaskIndex) textSearch(ctx context.Context, query string, size int) ([]domain.TaskRecord, error) {
	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score}).
		SetSort(bson.D{{Key: "score", Value: score}})
	if size > 0 {
		opts.SetLimit(int64(size))
	}

	cur, err := x.col.Find(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", domain.ErrSearchUnavailable, query, err)
	}

	var docs []searchDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode results: %v", domain.ErrSearchUnavailable, err)
	}

	out := make([]domain.TaskRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

// fuzzySearch scans the documents not in exclude and keeps those m scores
// above zero.
func (x *TaskIndex) fuzzySearch(ctx context.Context, m fuzzyMatcher, exclude bson.A, size int) ([]domain.TaskRecord, error) {
	if len(m.terms) == 0 {
		return nil, nil
	}

	cur, err := x.col.Find(ctx, bson.M{"_id": bson.M{"$nin": exclude}})
	if err != nil {
		return nil, fmt.Errorf("%w: fuzzy scan: %v", domain.ErrSearchUnavailable, err)
	}
	defer cur.Close(ctx)

	var hits []scoredRecord
	for cur.Next(ctx) {
		var d searchDocument
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: decode results: %v", domain.ErrSearchUnavailable, err)
		}
		rec := d.record()
		if s := m.score(rec); s > 0 {
			hits = append(hits, scoredRecord{rec: rec, score: s})
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: fuzzy scan: %v", domain.ErrSearchUnavailable, err)
	}
	return rank(hits, size), nil
}

func (x *TaskIndex) checkFields(fields []ports.SearchField) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.weights == nil {
		// Index created by an earlier process; trust its definition.
		return nil
	}
	for _, f := range fields {
		w, ok := x.weights[f.Name]
		if !ok {
			return fmt.Errorf("%w: field %q is not indexed", domain.ErrSearchUnavailable, f.Name)
		}
		if w != f.Weight {
			return fmt.Errorf("%w: field %q is indexed with weight %d, not %d", domain.ErrSearchUnavailable, f.Name, w, f.Weight)
		}
	}
	return nil
}

func (x *TaskIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	if err := x.col.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}
	return nil
}

// DisabledIndex stands in for the search index when search is switched off.
// Every operation fails with domain.ErrSearchDisabled, so searches always take
// the primary store path.
type DisabledIndex struct{}

var _ ports.SearchIndex = DisabledIndex{}

func (DisabledIndex) EnsureIndex(context.Context, ports.IndexMapping) error {
	return domain.ErrSearchDisabled
}

func (DisabledIndex) Index(context.Context, int64, domain.TaskRecord) error {
	return domain.ErrSearchDisabled
}

func (DisabledIndex) Delete(context.Context, int64) error { return domain.ErrSearchDisabled }

func (DisabledIndex) Search(context.Context, string, []ports.SearchField, int) ([]domain.TaskRecord, error) {
	return nil, domain.ErrSearchDisabled
}

func (DisabledIndex) Ping(context.Context) error { return domain.ErrSearchDisabled }

// IsDisabled reports whether err comes from a DisabledIndex.
func IsDisabled(err error) bool {
	return errors.Is(err, domain.ErrSearchDisabled)
}
