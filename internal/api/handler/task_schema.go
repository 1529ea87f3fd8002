package handler

import (
	"bytes"
	"encoding/json"
	"time"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request / Response types ---

type createTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=255"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"    validate:"omitempty,priority"`
}

// optional records whether a JSON field was present and whether it was null,
// which a plain pointer cannot tell apart.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// updateTaskRequest is a partial update: absent fields are left untouched.
type updateTaskRequest struct {
	Title       optional[string]    `json:"title"       swaggertype:"string"`
	Description optional[string]    `json:"description" swaggertype:"string"`
	Completed   optional[bool]      `json:"completed"   swaggertype:"boolean"`
	DueDate     optional[time.Time] `json:"due_date"    swaggertype:"string" format:"date-time"`
	Priority    optional[string]    `json:"priority"    swaggertype:"string" enums:"low,normal,high"`
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	DueDate     time.Time `json:"due_date"`
	Priority    string    `json:"priority"`
	OwnerID     int64     `json:"owner_id"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
	Role     string `json:"role"`
}

// tokenRequest accepts the OAuth2 password form or an equivalent JSON body.
type tokenRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
