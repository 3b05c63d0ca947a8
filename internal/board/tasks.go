package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kanbanlive/internal/metrics"
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

// Tasks returns every task of the board. A non-empty query filters by title.
func (s *Service) Tasks(ctx context.Context, actor, boardID uuid.UUID, query string) ([]model.Task, error) {
	if _, _, err := s.authorize(ctx, boardID, actor, accessRead); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.GetByBoardID(ctx, boardID, query)
	return tasks, classify(err)
}

func (s *Service) ListTasks(ctx context.Context, actor, listID uuid.UUID) ([]model.Task, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, list.BoardID, actor, accessRead); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.GetByListID(ctx, listID)
	return tasks, classify(err)
}

func (s *Service) Task(ctx context.Context, actor, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, task.BoardID, actor, accessRead); err != nil {
		return nil, err
	}
	return task, nil
}

type NewTask struct {
	Title       string
	Description *string
	Priority    model.Priority
	DueDate     *time.Time
	AssignedTo  *uuid.UUID
}

// CreateTask appends a task at the end of the list. The task's board is taken from the list.
func (s *Service) CreateTask(ctx context.Context, actor, listID uuid.UUID, in NewTask) (*model.Task, error) {
	title, err := cleanName(in.Title)
	if err != nil {
		return nil, fmt.Errorf("task title is required: %w", err)
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q: %w", in.Priority, ErrInvalid)
	}
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, list.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}
	if in.AssignedTo != nil {
		if err := s.requireMember(ctx, list.BoardID, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := &model.Task{
		ListID:      list.ID,
		BoardID:     list.BoardID,
		Title:       title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   ptr(actor),
	}
	if err := s.tasks.CreateAtEnd(ctx, task); err != nil {
		return nil, classify(err)
	}
	s.record(task.BoardID, actor, model.ActionCreated, model.EntityTask, ptr(task.ID), task.Title, nil)
	s.announce(ctx, task.BoardID, notify.OperationInsert, notify.CollectionTasks)
	return task, nil
}

// TaskUpdate holds the fields to change. ClearDueDate and ClearAssignee reset the optional fields.
type TaskUpdate struct {
	Title         *string
	Description   *string
	Priority      *model.Priority
	DueDate       *time.Time
	ClearDueDate  bool
	AssignedTo    *uuid.UUID
	ClearAssignee bool
}

func (s *Service) UpdateTask(ctx context.Context, actor, taskID uuid.UUID, upd TaskUpdate) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, task.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title, err := cleanName(*upd.Title)
		if err != nil {
			return nil, fmt.Errorf("task title is required: %w", err)
		}
		task.Title = title
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		if desc == "" {
			task.Description = nil
		} else {
			task.Description = &desc
		}
	}
	if upd.Priority != nil {
		if !upd.Priority.Valid() {
			return nil, fmt.Errorf("unknown priority %q: %w", *upd.Priority, ErrInvalid)
		}
		task.Priority = *upd.Priority
	}
	switch {
	case upd.ClearDueDate:
		task.DueDate = nil
	case upd.DueDate != nil:
		task.DueDate = upd.DueDate
	}
	switch {
	case upd.ClearAssignee:
		task.AssignedTo = nil
	case upd.AssignedTo != nil:
		if err := s.requireMember(ctx, task.BoardID, *upd.AssignedTo); err != nil {
			return nil, err
		}
		task.AssignedTo = upd.AssignedTo
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, classify(err)
	}
	s.record(task.BoardID, actor, model.ActionUpdated, model.EntityTask, ptr(task.ID), task.Title, nil)
	s.announce(ctx, task.BoardID, notify.OperationUpdate, notify.CollectionTasks)
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, actor, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return classify(err)
	}
	if _, _, err := s.authorize(ctx, task.BoardID, actor, accessWrite); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return classify(err)
	}
	s.record(task.BoardID, actor, model.ActionDeleted, model.EntityTask, ptr(task.ID), task.Title, nil)
	s.announce(ctx, task.BoardID, notify.OperationDelete, notify.CollectionTasks)
	return nil
}

// MoveTask puts the task at index of the destination list, counting that list's tasks without the
// moved one. Repeating a move with the same destination is harmless.
func (s *Service) MoveTask(ctx context.Context, actor, taskID, listID uuid.UUID, index int) (*model.Task, error) {
	task, err := s.moveTask(ctx, actor, taskID, listID, index)
	if err != nil {
		metrics.Moves.WithLabelValues("task", "error").Inc()
		return nil, err
	}
	metrics.Moves.WithLabelValues("task", "ok").Inc()
	return task, nil
}

func (s *Service) moveTask(ctx context.Context, actor, taskID, listID uuid.UUID, index int) (*model.Task, error) {
	if index < 0 {
		return nil, fmt.Errorf("index must not be negative: %w", ErrInvalid)
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, task.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}

	res, err := s.tasks.Move(ctx, taskID, listID, index)
	if err != nil {
		return nil, classify(err)
	}
	moved := res.Task
	s.record(moved.BoardID, actor, model.ActionMoved, model.EntityTask, ptr(moved.ID), moved.Title, map[string]any{
		"from_list": res.FromListID.String(),
		"to_list":   moved.ListID.String(),
		"index":     moved.Position,
	})
	s.announce(ctx, moved.BoardID, notify.OperationUpdate, notify.CollectionTasks)
	return &moved, nil
}

func (s *Service) AssignTask(ctx context.Context, actor, taskID, userID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, task.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, task.BoardID, userID); err != nil {
		return nil, err
	}
	if err := s.tasks.AssignUser(ctx, taskID, userID); err != nil {
		return nil, classify(err)
	}
	task.AssignedTo = &userID
	s.record(task.BoardID, actor, model.ActionAssigned, model.EntityTask, ptr(task.ID), task.Title,
		map[string]any{"assignee": userID.String()})
	s.announce(ctx, task.BoardID, notify.OperationUpdate, notify.CollectionTasks)
	return task, nil
}

func (s *Service) UnassignTask(ctx context.Context, actor, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, task.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}
	if err := s.tasks.UnassignUser(ctx, taskID); err != nil {
		return nil, classify(err)
	}
	task.AssignedTo = nil
	s.record(task.BoardID, actor, model.ActionUpdated, model.EntityTask, ptr(task.ID), task.Title,
		map[string]any{"assignee": nil})
	s.announce(ctx, task.BoardID, notify.OperationUpdate, notify.CollectionTasks)
	return task, nil
}

func (s *Service) requireMember(ctx context.Context, boardID, userID uuid.UUID) error {
	role, err := s.members.GetRole(ctx, boardID, userID)
	if err != nil {
		return classify(err)
	}
	if role == "" {
		return fmt.Errorf("assignee is not a board member: %w", ErrInvalid)
	}
	return nil
}
