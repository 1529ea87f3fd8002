package handler

import (
	"fmt"
	"strings"

	"github.com/sirpyerre/task-tracker/internal/core/domain"
)

// Mapping between transport DTOs and domain types. Kept apart from the
// handlers so the JSON contract does not leak into the core.

func toTaskResponse(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC(),
		DueDate:     t.DueDate.UTC(),
		Priority:    string(t.Priority),
		OwnerID:     t.OwnerID,
	}
}

func toTaskResponses(tasks []domain.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i]))
	}
	return out
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		IsActive: u.IsActive,
		Role:     u.Role,
	}
}

func (r createTaskRequest) toDraft() domain.TaskDraft {
	draft := domain.TaskDraft{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    domain.Priority(r.Priority),
	}
	if prio, err := domain.ParsePriority(r.Priority); err == nil {
		draft.Priority = prio
	}
	if r.DueDate != nil {
		due := r.DueDate.UTC()
		draft.DueDate = &due
	}
	return draft
}

// toPatch converts the request into a domain patch. An explicit null clears
// the description and is rejected for every other field.
func (r updateTaskRequest) toPatch() (domain.TaskPatch, error) {
	var p domain.TaskPatch

	if r.Title.Set {
		if r.Title.Null {
			return p, nullField("title")
		}
		title := strings.TrimSpace(r.Title.Value)
		p.Title = &title
	}
	if r.Description.Set {
		desc := ""
		if !r.Description.Null {
			desc = r.Description.Value
		}
		p.Description = &desc
	}
	if r.Completed.Set {
		if r.Completed.Null {
			return p, nullField("completed")
		}
		p.Completed = &r.Completed.Value
	}
	if r.DueDate.Set {
		if r.DueDate.Null {
			return p, nullField("due_date")
		}
		due := r.DueDate.Value.UTC()
		p.DueDate = &due
	}
	if r.Priority.Set {
		if r.Priority.Null {
			return p, nullField("priority")
		}
		prio, err := domain.ParsePriority(r.Priority.Value)
		if err != nil {
			return p, err
		}
		p.Priority = &prio
	}
	return p, nil
}

func nullField(name string) error {
	return fmt.Errorf("%w: %s must not be null", domain.ErrInvalidTask, name)
}
