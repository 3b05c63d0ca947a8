// Package api holds the JSON request and response bodies of the HTTP API. The server handlers
// and the Go client share them.
package api

import (
	"time"

	"github.com/google/uuid"

	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type BoardRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type BoardUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type BoardResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewBoardResponse(b model.Board) BoardResponse {
	return BoardResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		OwnerID:     b.OwnerID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// MemberRequest invites an existing user by email.
type MemberRequest struct {
	Email string     `json:"email" binding:"required,email"`
	Role  model.Role `json:"role" binding:"omitempty,oneof=editor viewer"`
}

type MemberResponse struct {
	UserID   uuid.UUID  `json:"user_id"`
	Email    string     `json:"email"`
	FullName *string    `json:"full_name,omitempty"`
	Role     model.Role `json:"role"`
}

func NewMemberResponse(m model.Member) MemberResponse {
	return MemberResponse{
		UserID:   m.UserID,
		Email:    m.User.Email,
		FullName: m.User.FullName,
		Role:     m.Role,
	}
}

type ListRequest struct {
	Name string `json:"name" binding:"required"`
}

type ListMoveRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

type ListResponse struct {
	ID        uuid.UUID `json:"id"`
	BoardID   uuid.UUID `json:"board_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewListResponse(l model.List) ListResponse {
	return ListResponse{
		ID:        l.ID,
		BoardID:   l.BoardID,
		Name:      l.Name,
		Position:  l.Position,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (r ListResponse) Model() model.List {
	return model.List{
		ID:        r.ID,
		BoardID:   r.BoardID,
		Name:      r.Name,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type TaskRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description *string        `json:"description"`
	Priority    model.Priority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time     `json:"due_date"`
	AssignedTo  *uuid.UUID     `json:"assigned_to"`
}

// TaskUpdateRequest changes only the fields present. The clear flags reset due_date and
// assigned_to.
type TaskUpdateRequest struct {
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Priority      *model.Priority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate       *time.Time      `json:"due_date"`
	ClearDueDate  bool            `json:"clear_due_date"`
	AssignedTo    *uuid.UUID      `json:"assigned_to"`
	ClearAssignee bool            `json:"clear_assignee"`
}

type TaskMoveRequest struct {
	ListID uuid.UUID `json:"list_id" binding:"required"`
	Index  *int      `json:"index" binding:"required,min=0"`
}

type TaskAssignRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type TaskResponse struct {
	ID          uuid.UUID      `json:"id"`
	ListID      uuid.UUID      `json:"list_id"`
	BoardID     uuid.UUID      `json:"board_id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Priority    model.Priority `json:"priority"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	AssignedTo  *uuid.UUID     `json:"assigned_to,omitempty"`
	CreatedBy   *uuid.UUID     `json:"created_by,omitempty"`
	Position    int            `json:"position"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func NewTaskResponse(t model.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		ListID:      t.ListID,
		BoardID:     t.BoardID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		Position:    t.Position,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r TaskResponse) Model() model.Task {
	return model.Task{
		ID:          r.ID,
		ListID:      r.ListID,
		BoardID:     r.BoardID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		AssignedTo:  r.AssignedTo,
		CreatedBy:   r.CreatedBy,
		Position:    r.Position,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ActivityResponse is one trail entry joined with the actor's profile.
type ActivityResponse struct {
	ID         uuid.UUID        `json:"id"`
	BoardID    uuid.UUID        `json:"board_id"`
	UserID     uuid.UUID        `json:"user_id"`
	ActorName  string           `json:"actor_name"`
	ActorEmail string           `json:"actor_email"`
	Action     model.Action     `json:"action"`
	EntityType model.EntityType `json:"entity_type"`
	EntityID   *uuid.UUID       `json:"entity_id,omitempty"`
	EntityName *string          `json:"entity_name,omitempty"`
	Details    map[string]any   `json:"details,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func NewActivityResponse(e model.ActivityEntry) ActivityResponse {
	return ActivityResponse{
		ID:         e.ID,
		BoardID:    e.BoardID,
		UserID:     e.UserID,
		ActorName:  e.Actor.DisplayName(),
		ActorEmail: e.Actor.Email,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		EntityName: e.EntityName,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}

func (r ActivityResponse) Model() model.ActivityEntry {
	var fullName *string
	if r.ActorName != "" && r.ActorName != r.ActorEmail {
		name := r.ActorName
		fullName = &name
	}
	return model.ActivityEntry{
		ID:         r.ID,
		BoardID:    r.BoardID,
		UserID:     r.UserID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		EntityName: r.EntityName,
		Details:    r.Details,
		CreatedAt:  r.CreatedAt,
		Actor:      model.User{ID: r.UserID, Email: r.ActorEmail, FullName: fullName},
	}
}

// ChangeMessage is the data of a "change" event on the board stream.
type ChangeMessage struct {
	Collection notify.Collection `json:"collection"`
	Operation  notify.Operation  `json:"operation"`
}

// MapSlice converts every element of in with f.
func MapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
