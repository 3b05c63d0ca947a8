package board

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kanbanlive/internal/metrics"
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

func (s *Service) Lists(ctx context.Context, actor, boardID uuid.UUID) ([]model.List, error) {
	if _, _, err := s.authorize(ctx, boardID, actor, accessRead); err != nil {
		return nil, err
	}
	lists, err := s.lists.GetByBoardID(ctx, boardID)
	return lists, classify(err)
}

// CreateList appends a list after the board's existing lists.
func (s *Service) CreateList(ctx context.Context, actor, boardID uuid.UUID, name string) (*model.List, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, fmt.Errorf("list name is required: %w", err)
	}
	if _, _, err := s.authorize(ctx, boardID, actor, accessWrite); err != nil {
		return nil, err
	}
	list := &model.List{BoardID: boardID, Name: name}
	if err := s.lists.CreateAtEnd(ctx, list); err != nil {
		return nil, classify(err)
	}
	s.record(boardID, actor, model.ActionCreated, model.EntityList, ptr(list.ID), list.Name, nil)
	s.announce(ctx, boardID, notify.OperationInsert, notify.CollectionLists)
	return list, nil
}

func (s *Service) RenameList(ctx context.Context, actor, listID uuid.UUID, name string) (*model.List, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, fmt.Errorf("list name is required: %w", err)
	}
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, list.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}
	if err := s.lists.Rename(ctx, listID, name); err != nil {
		return nil, classify(err)
	}
	list.Name = name
	s.record(list.BoardID, actor, model.ActionUpdated, model.EntityList, ptr(list.ID), list.Name, nil)
	s.announce(ctx, list.BoardID, notify.OperationUpdate, notify.CollectionLists)
	return list, nil
}

// DeleteList removes the list together with its tasks.
func (s *Service) DeleteList(ctx context.Context, actor, listID uuid.UUID) error {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return classify(err)
	}
	if _, _, err := s.authorize(ctx, list.BoardID, actor, accessWrite); err != nil {
		return err
	}
	if err := s.lists.Delete(ctx, listID); err != nil {
		return classify(err)
	}
	s.record(list.BoardID, actor, model.ActionDeleted, model.EntityList, ptr(list.ID), list.Name, nil)
	s.announce(ctx, list.BoardID, notify.OperationDelete, notify.CollectionLists, notify.CollectionTasks)
	return nil
}

// MoveList reorders a list within its board. index counts the board's other lists.
func (s *Service) MoveList(ctx context.Context, actor, listID uuid.UUID, index int) (*model.List, error) {
	list, err := s.moveList(ctx, actor, listID, index)
	if err != nil {
		metrics.Moves.WithLabelValues("list", "error").Inc()
		return nil, err
	}
	metrics.Moves.WithLabelValues("list", "ok").Inc()
	return list, nil
}

func (s *Service) moveList(ctx context.Context, actor, listID uuid.UUID, index int) (*model.List, error) {
	if index < 0 {
		return nil, fmt.Errorf("index must not be negative: %w", ErrInvalid)
	}
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, classify(err)
	}
	if _, _, err := s.authorize(ctx, list.BoardID, actor, accessWrite); err != nil {
		return nil, err
	}
	moved, err := s.lists.Move(ctx, listID, index)
	if err != nil {
		return nil, classify(err)
	}
	s.record(moved.BoardID, actor, model.ActionMoved, model.EntityList, ptr(moved.ID), moved.Name,
		map[string]any{"index": moved.Position})
	s.announce(ctx, moved.BoardID, notify.OperationUpdate, notify.CollectionLists)
	return moved, nil
}
