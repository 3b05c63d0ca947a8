// Package board applies board mutations on behalf of an actor: it checks membership, writes
// through the repositories, records the activity trail and announces the change on the board's
// notification channel.
package board

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/activity"
	"kanbanlive/internal/metrics"
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
	"kanbanlive/internal/repository"
)

type BoardStore interface {
	Create(ctx context.Context, board *model.Board) error
	GetForUser(ctx context.Context, userID uuid.UUID) ([]model.Board, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error)
	Update(ctx context.Context, board *model.Board) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ListStore interface {
	CreateAtEnd(ctx context.Context, list *model.List) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.List, error)
	GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.List, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, id uuid.UUID, index int) (*model.List, error)
}

type TaskStore interface {
	CreateAtEnd(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	GetByListID(ctx context.Context, listID uuid.UUID) ([]model.Task, error)
	GetByBoardID(ctx context.Context, boardID uuid.UUID, query string) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, taskID, listID uuid.UUID, index int) (*repository.MoveResult, error)
	AssignUser(ctx context.Context, taskID, userID uuid.UUID) error
	UnassignUser(ctx context.Context, taskID uuid.UUID) error
}

type MemberStore interface {
	Add(ctx context.Context, boardID, userID uuid.UUID, role model.Role) (*model.Member, error)
	Remove(ctx context.Context, boardID, userID uuid.UUID) error
	GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.Member, error)
	GetRole(ctx context.Context, boardID, userID uuid.UUID) (model.Role, error)
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Trail receives one entry per successful mutation.
type Trail interface {
	Append(e activity.Entry)
	List(ctx context.Context, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev notify.Event) error
}

type Stores struct {
	Boards  BoardStore
	Lists   ListStore
	Tasks   TaskStore
	Members MemberStore
	Users   UserStore
}

type Service struct {
	boards  BoardStore
	lists   ListStore
	tasks   TaskStore
	members MemberStore
	users   UserStore
	trail   Trail
	pub     Publisher
	logger  *log.Logger
}

func NewService(stores Stores, trail Trail, pub Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		boards:  stores.Boards,
		lists:   stores.Lists,
		tasks:   stores.Tasks,
		members: stores.Members,
		users:   stores.Users,
		trail:   trail,
		pub:     pub,
		logger:  logger,
	}
}

type access int

const (
	accessRead access = iota
	accessWrite
	accessOwner
)

// authorize loads the board and checks the actor's membership role against the required access.
func (s *Service) authorize(ctx context.Context, boardID, actor uuid.UUID, need access) (*model.Board, model.Role, error) {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, "", classify(err)
	}
	role, err := s.members.GetRole(ctx, boardID, actor)
	if err != nil {
		return nil, "", classify(err)
	}
	switch {
	case role == "":
		return nil, "", ErrPermissionDenied
	case need == accessWrite && !role.CanWrite():
		return nil, "", ErrPermissionDenied
	case need == accessOwner && role != model.RoleOwner:
		return nil, "", ErrPermissionDenied
	}
	return board, role, nil
}

// announce publishes one event per collection. Failures are logged: clients converge via polling.
func (s *Service) announce(ctx context.Context, boardID uuid.UUID, op notify.Operation, collections ...notify.Collection) {
	if s.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, c := range collections {
		if err := s.pub.Publish(ctx, notify.Event{BoardID: boardID, Collection: c, Operation: op}); err != nil {
			metrics.NotificationFailures.Inc()
			s.logger.WithError(err).WithFields(log.Fields{
				"board_id":   boardID.String(),
				"collection": c,
			}).Warn("change notification failed")
		}
	}
}

func (s *Service) record(boardID, actor uuid.UUID, action model.Action, entity model.EntityType, id *uuid.UUID, name string, details map[string]any) {
	if s.trail == nil {
		return
	}
	s.trail.Append(activity.Entry{
		BoardID:    boardID,
		ActorID:    actor,
		Action:     action,
		EntityType: entity,
		EntityID:   id,
		EntityName: name,
		Details:    details,
	})
}

func ptr[T any](v T) *T {
	return &v
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalid
	}
	return name, nil
}
