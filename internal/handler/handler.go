package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/board"
	"kanbanlive/internal/middleware"
	"kanbanlive/internal/model"
)

// BoardService is the part of board.Service behind the board, member and activity routes.
type BoardService interface {
	CreateBoard(ctx context.Context, actor uuid.UUID, name, description string) (*model.Board, error)
	Boards(ctx context.Context, actor uuid.UUID) ([]model.Board, error)
	Board(ctx context.Context, actor, boardID uuid.UUID) (*model.Board, error)
	UpdateBoard(ctx context.Context, actor, boardID uuid.UUID, upd board.BoardUpdate) (*model.Board, error)
	DeleteBoard(ctx context.Context, actor, boardID uuid.UUID) error
	Members(ctx context.Context, actor, boardID uuid.UUID) ([]model.Member, error)
	AddMember(ctx context.Context, actor, boardID uuid.UUID, email string, role model.Role) (*model.Member, error)
	RemoveMember(ctx context.Context, actor, boardID, userID uuid.UUID) error
	Activity(ctx context.Context, actor, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

type ListService interface {
	Lists(ctx context.Context, actor, boardID uuid.UUID) ([]model.List, error)
	CreateList(ctx context.Context, actor, boardID uuid.UUID, name string) (*model.List, error)
	RenameList(ctx context.Context, actor, listID uuid.UUID, name string) (*model.List, error)
	DeleteList(ctx context.Context, actor, listID uuid.UUID) error
	MoveList(ctx context.Context, actor, listID uuid.UUID, index int) (*model.List, error)
}

type TaskService interface {
	Tasks(ctx context.Context, actor, boardID uuid.UUID, query string) ([]model.Task, error)
	ListTasks(ctx context.Context, actor, listID uuid.UUID) ([]model.Task, error)
	Task(ctx context.Context, actor, taskID uuid.UUID) (*model.Task, error)
	CreateTask(ctx context.Context, actor, listID uuid.UUID, in board.NewTask) (*model.Task, error)
	UpdateTask(ctx context.Context, actor, taskID uuid.UUID, upd board.TaskUpdate) (*model.Task, error)
	DeleteTask(ctx context.Context, actor, taskID uuid.UUID) error
	MoveTask(ctx context.Context, actor, taskID, listID uuid.UUID, index int) (*model.Task, error)
	AssignTask(ctx context.Context, actor, taskID, userID uuid.UUID) (*model.Task, error)
	UnassignTask(ctx context.Context, actor, taskID uuid.UUID) (*model.Task, error)
}

// currentUser reads the authenticated user and writes the error response when it is missing.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	if _, exists := c.Get(middleware.UserIDKey); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, false
	}
	return userID, true
}

func paramID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, board.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to access this board"})
	case errors.Is(err, board.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, board.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, retry the request"})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
