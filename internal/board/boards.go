package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"kanbanlive/internal/model"
)

func (s *Service) CreateBoard(ctx context.Context, actor uuid.UUID, name, description string) (*model.Board, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, fmt.Errorf("board name is required: %w", err)
	}
	board := &model.Board{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     actor,
	}
	if err := s.boards.Create(ctx, board); err != nil {
		return nil, classify(err)
	}
	s.record(board.ID, actor, model.ActionCreated, model.EntityBoard, ptr(board.ID), board.Name, nil)
	return board, nil
}

func (s *Service) Boards(ctx context.Context, actor uuid.UUID) ([]model.Board, error) {
	boards, err := s.boards.GetForUser(ctx, actor)
	return boards, classify(err)
}

func (s *Service) Board(ctx context.Context, actor, boardID uuid.UUID) (*model.Board, error) {
	board, _, err := s.authorize(ctx, boardID, actor, accessRead)
	return board, err
}

type BoardUpdate struct {
	Name        *string
	Description *string
}

func (s *Service) UpdateBoard(ctx context.Context, actor, boardID uuid.UUID, upd BoardUpdate) (*model.Board, error) {
	board, _, err := s.authorize(ctx, boardID, actor, accessWrite)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name, err := cleanName(*upd.Name)
		if err != nil {
			return nil, fmt.Errorf("board name is required: %w", err)
		}
		board.Name = name
	}
	if upd.Description != nil {
		board.Description = strings.TrimSpace(*upd.Description)
	}
	if err := s.boards.Update(ctx, board); err != nil {
		return nil, classify(err)
	}
	s.record(board.ID, actor, model.ActionUpdated, model.EntityBoard, ptr(board.ID), board.Name, nil)
	return board, nil
}

func (s *Service) DeleteBoard(ctx context.Context, actor, boardID uuid.UUID) error {
	if _, _, err := s.authorize(ctx, boardID, actor, accessOwner); err != nil {
		return err
	}
	return classify(s.boards.Delete(ctx, boardID))
}

func (s *Service) Members(ctx context.Context, actor, boardID uuid.UUID) ([]model.Member, error) {
	if _, _, err := s.authorize(ctx, boardID, actor, accessRead); err != nil {
		return nil, err
	}
	members, err := s.members.GetByBoardID(ctx, boardID)
	return members, classify(err)
}

// AddMember invites an existing user by email. Re-inviting a member changes their role.
func (s *Service) AddMember(ctx context.Context, actor, boardID uuid.UUID, email string, role model.Role) (*model.Member, error) {
	if role == "" {
		role = model.RoleEditor
	}
	if !role.Valid() || role == model.RoleOwner {
		return nil, fmt.Errorf("role %q cannot be granted: %w", role, ErrInvalid)
	}
	if _, _, err := s.authorize(ctx, boardID, actor, accessWrite); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, classify(err)
	}
	current, err := s.members.GetRole(ctx, boardID, user.ID)
	if err != nil {
		return nil, classify(err)
	}
	if current == model.RoleOwner {
		return nil, fmt.Errorf("owner role cannot be changed: %w", ErrInvalid)
	}

	member, err := s.members.Add(ctx, boardID, user.ID, role)
	if err != nil {
		return nil, classify(err)
	}
	member.User = *user
	s.record(boardID, actor, model.ActionAssigned, model.EntityMember, ptr(user.ID), user.Email, map[string]any{"role": string(role)})
	return member, nil
}

func (s *Service) RemoveMember(ctx context.Context, actor, boardID, userID uuid.UUID) error {
	board, _, err := s.authorize(ctx, boardID, actor, accessOwner)
	if err != nil {
		return err
	}
	if userID == board.OwnerID {
		return fmt.Errorf("owner cannot be removed: %w", ErrInvalid)
	}
	if err := s.members.Remove(ctx, boardID, userID); err != nil {
		return classify(err)
	}
	s.record(boardID, actor, model.ActionDeleted, model.EntityMember, ptr(userID), "", nil)
	return nil
}

// Activity returns the board's most recent trail entries.
func (s *Service) Activity(ctx context.Context, actor, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	if _, _, err := s.authorize(ctx, boardID, actor, accessRead); err != nil {
		return nil, err
	}
	entries, err := s.trail.List(ctx, boardID, limit)
	return entries, classify(err)
}
