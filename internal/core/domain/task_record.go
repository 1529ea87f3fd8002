package domain

import (
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for every serialized timestamp.
const TimestampLayout = time.RFC3339Nano

// TaskRecord is the flat serialized form of a Task. The same shape is stored
// as a cache value (JSON) and as a search document (BSON), so the two tag sets
// must always name the same fields.
type TaskRecord struct {
	ID          int64  `json:"id"          bson:"id"`
	Title       string `json:"title"       bson:"title"`
	Description string `json:"description" bson:"description"`
	Completed   bool   `json:"completed"   bson:"completed"`
	CreatedAt   string `json:"created_at"  bson:"created_at"`
	DueDate     string `json:"due_date"    bson:"due_date"`
	Priority    string `json:"priority"    bson:"priority"`
	OwnerID     int64  `json:"owner_id"    bson:"owner_id"`
}

// ToRecord serializes t. Zero timestamps serialize to an empty string.
func ToRecord(t Task) TaskRecord {
	return TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   formatTimestamp(t.CreatedAt),
		DueDate:     formatTimestamp(t.DueDate),
		Priority:    string(t.Priority),
		OwnerID:     t.OwnerID,
	}
}

// ToRecords serializes a slice of tasks, preserving order.
func ToRecords(tasks []Task) []TaskRecord {
	out := make([]TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToRecord(t))
	}
	return out
}

// FromRecord rebuilds a Task, parsing timestamps and the priority enum back
// from their wire forms.
func FromRecord(r TaskRecord) (Task, error) {
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("task %d created_at: %w", r.ID, err)
	}
	dueDate, err := parseTimestamp(r.DueDate)
	if err != nil {
		return Task{}, fmt.Errorf("task %d due_date: %w", r.ID, err)
	}

	priority := PriorityNormal
	if r.Priority != "" {
		if priority, err = ParsePriority(r.Priority); err != nil {
			return Task{}, fmt.Errorf("task %d: %w", r.ID, err)
		}
	}

	return Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		CreatedAt:   createdAt,
		DueDate:     dueDate,
		Priority:    priority,
		OwnerID:     r.OwnerID,
	}, nil
}

// FromRecords rebuilds a slice of tasks, failing on the first malformed record.
func FromRecords(records []TaskRecord) ([]Task, error) {
	out := make([]Task, 0, len(records))
	for _, r := range records {
		t, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SortByDueDate orders tasks by due date ascending. Tasks without a due date
// go last; ties keep their input order.
func SortByDueDate(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.Before(b)
		}
	})
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
