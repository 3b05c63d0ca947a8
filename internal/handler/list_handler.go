package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanbanlive/internal/api"
)

type ListHandler struct {
	svc ListService
}

func NewListHandler(svc ListService) *ListHandler {
	return &ListHandler{svc: svc}
}

// Create добавляет список в конец доски
// @Summary  Create list
// @Tags     Lists
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string          true "Board ID"
// @Param    body body     api.ListRequest true "List"
// @Success  201  {object} api.ListResponse
// @Router   /boards/{id}/lists [post]
func (h *ListHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	var req api.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	list, err := h.svc.CreateList(c.Request.Context(), userID, boardID, req.Name)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusCreated, api.NewListResponse(*list))
}

// GetAll возвращает списки доски в порядке отображения
// @Summary  Board lists
// @Tags     Lists
// @Security BearerAuth
// @Produce  json
// @Param    id  path    string true "Board ID"
// @Success  200 {array} api.ListResponse
// @Router   /boards/{id}/lists [get]
func (h *ListHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	lists, err := h.svc.Lists(c.Request.Context(), userID, boardID)
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.MapSlice(lists, api.NewListResponse))
}

// Update переименовывает список
// @Summary  Rename list
// @Tags     Lists
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string          true "List ID"
// @Param    body body     api.ListRequest true "List"
// @Success  200  {object} api.ListResponse
// @Router   /lists/{id} [put]
func (h *ListHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id", "list")
	if !ok {
		return
	}

	var req api.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	list, err := h.svc.RenameList(c.Request.Context(), userID, listID, req.Name)
	if err != nil {
		respondError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, api.NewListResponse(*list))
}

// Delete удаляет список вместе с задачами
// @Summary  Delete list
// @Tags     Lists
// @Security BearerAuth
// @Param    id path string true "List ID"
// @Success  204
// @Router   /lists/{id} [delete]
func (h *ListHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id", "list")
	if !ok {
		return
	}

	if err := h.svc.DeleteList(c.Request.Context(), userID, listID); err != nil {
		respondError(c, err, "List")
		return
	}
	c.Status(http.StatusNoContent)
}

// Move переставляет список на позицию index среди остальных списков доски
// @Summary  Move list
// @Tags     Lists
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string              true "List ID"
// @Param    body body     api.ListMoveRequest true "Destination"
// @Success  200  {object} api.ListResponse
// @Failure  503  {object} api.ErrorResponse
// @Router   /lists/{id}/move [post]
func (h *ListHandler) Move(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id", "list")
	if !ok {
		return
	}

	var req api.ListMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	list, err := h.svc.MoveList(c.Request.Context(), userID, listID, *req.Index)
	if err != nil {
		respondError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, api.NewListResponse(*list))
}
