package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kanbanlive/internal/api"
	"kanbanlive/internal/board"
)

type BoardHandler struct {
	svc BoardService
}

func NewBoardHandler(svc BoardService) *BoardHandler {
	return &BoardHandler{svc: svc}
}

// Create creates a new board owned by the authenticated user
// @Summary  Create board
// @Tags     Boards
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    body body     api.BoardRequest true "Board"
// @Success  201  {object} api.BoardResponse
// @Failure  400  {object} api.ErrorResponse
// @Router   /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req api.BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	b, err := h.svc.CreateBoard(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusCreated, api.NewBoardResponse(*b))
}

// GetAll returns every board the user is a member of
// @Summary  List boards
// @Tags     Boards
// @Security BearerAuth
// @Produce  json
// @Success  200 {array} api.BoardResponse
// @Router   /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	boards, err := h.svc.Boards(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.MapSlice(boards, api.NewBoardResponse))
}

// GetByID returns a single board
// @Summary  Get board
// @Tags     Boards
// @Security BearerAuth
// @Produce  json
// @Param    id  path     string true "Board ID"
// @Success  200 {object} api.BoardResponse
// @Failure  404 {object} api.ErrorResponse
// @Router   /boards/{id} [get]
func (h *BoardHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	b, err := h.svc.Board(c.Request.Context(), userID, boardID)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.NewBoardResponse(*b))
}

// Update renames the board or changes its description
// @Summary  Update board
// @Tags     Boards
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string                 true "Board ID"
// @Param    body body     api.BoardUpdateRequest true "Changes"
// @Success  200  {object} api.BoardResponse
// @Router   /boards/{id} [put]
func (h *BoardHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	var req api.BoardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	b, err := h.svc.UpdateBoard(c.Request.Context(), userID, boardID, board.BoardUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.NewBoardResponse(*b))
}

// Delete removes the board with its lists, tasks and trail. Owner only.
// @Summary  Delete board
// @Tags     Boards
// @Security BearerAuth
// @Param    id path string true "Board ID"
// @Success  204
// @Router   /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	if err := h.svc.DeleteBoard(c.Request.Context(), userID, boardID); err != nil {
		respondError(c, err, "Board")
		return
	}
	c.Status(http.StatusNoContent)
}

// Activity returns the most recent activity of the board, newest first
// @Summary  Board activity
// @Tags     Activity
// @Security BearerAuth
// @Produce  json
// @Param    id    path     string true  "Board ID"
// @Param    limit query    int    false "Page size, default 50, max 200"
// @Success  200   {array}  api.ActivityResponse
// @Router   /boards/{id}/activity [get]
func (h *BoardHandler) Activity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.svc.Activity(c.Request.Context(), userID, boardID, limit)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.MapSlice(entries, api.NewActivityResponse))
}

// Members lists the users with access to the board
// @Summary  Board members
// @Tags     Members
// @Security BearerAuth
// @Produce  json
// @Param    id  path    string true "Board ID"
// @Success  200 {array} api.MemberResponse
// @Router   /boards/{id}/members [get]
func (h *BoardHandler) Members(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	members, err := h.svc.Members(c.Request.Context(), userID, boardID)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.MapSlice(members, api.NewMemberResponse))
}

// AddMember предоставляет доступ к доске по email пользователя
// @Summary  Invite member
// @Tags     Members
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string            true "Board ID"
// @Param    body body     api.MemberRequest true "Invite"
// @Success  201  {object} api.MemberResponse
// @Router   /boards/{id}/members [post]
func (h *BoardHandler) AddMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	var req api.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	member, err := h.svc.AddMember(c.Request.Context(), userID, boardID, req.Email, req.Role)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, api.NewMemberResponse(*member))
}

// RemoveMember отзывает доступ пользователя к доске
// @Summary  Remove member
// @Tags     Members
// @Security BearerAuth
// @Param    id      path string true "Board ID"
// @Param    user_id path string true "User ID"
// @Success  204
// @Router   /boards/{id}/members/{user_id} [delete]
func (h *BoardHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "user_id", "user")
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), userID, boardID, memberID); err != nil {
		respondError(c, err, "Member")
		return
	}
	c.Status(http.StatusNoContent)
}
