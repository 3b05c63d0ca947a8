package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanbanlive/internal/api"
	"kanbanlive/internal/board"
)

type TaskHandler struct {
	svc TaskService
}

func NewTaskHandler(svc TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create создает новую задачу в конце списка
// @Summary  Create task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string          true "List ID"
// @Param    body body     api.TaskRequest true "Task"
// @Success  201  {object} api.TaskResponse
// @Router   /lists/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id", "list")
	if !ok {
		return
	}

	var req api.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.svc.CreateTask(c.Request.Context(), userID, listID, board.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondError(c, err, "List")
		return
	}
	c.JSON(http.StatusCreated, api.NewTaskResponse(*task))
}

// GetByID получает задачу по ID
// @Summary  Get task
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Param    id  path     string true "Task ID"
// @Success  200 {object} api.TaskResponse
// @Router   /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	task, err := h.svc.Task(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, api.NewTaskResponse(*task))
}

// GetByListID получает все задачи списка
// @Summary  List tasks
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Param    id  path    string true "List ID"
// @Success  200 {array} api.TaskResponse
// @Router   /lists/{id}/tasks [get]
func (h *TaskHandler) GetByListID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id", "list")
	if !ok {
		return
	}

	tasks, err := h.svc.ListTasks(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, api.MapSlice(tasks, api.NewTaskResponse))
}

// GetByBoardID получает задачи доски, q фильтрует по подстроке в названии
// @Summary  Board tasks
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Param    id  path    string true  "Board ID"
// @Param    q   query   string false "Title substring"
// @Success  200 {array} api.TaskResponse
// @Router   /boards/{id}/tasks [get]
func (h *TaskHandler) GetByBoardID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	tasks, err := h.svc.Tasks(c.Request.Context(), userID, boardID, c.Query("q"))
	if err != nil {
		respondError(c, err, "Board")
		return
	}
	c.JSON(http.StatusOK, api.MapSlice(tasks, api.NewTaskResponse))
}

// Update обновляет задачу
// @Summary  Update task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string                true "Task ID"
// @Param    body body     api.TaskUpdateRequest true "Changes"
// @Success  200  {object} api.TaskResponse
// @Router   /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	var req api.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.svc.UpdateTask(c.Request.Context(), userID, taskID, board.TaskUpdate{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
		AssignedTo:    req.AssignedTo,
		ClearAssignee: req.ClearAssignee,
	})
	if err != nil {
		respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, api.NewTaskResponse(*task))
}

// Delete удаляет задачу
// @Summary  Delete task
// @Tags     Tasks
// @Security BearerAuth
// @Param    id path string true "Task ID"
// @Success  204
// @Router   /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	if err := h.svc.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		respondError(c, err, "Task")
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveTask перемещает задачу между списками или изменяет её позицию.
// Повторный запрос с тем же назначением безопасен, 503 можно повторять.
// @Summary  Move task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string              true "Task ID"
// @Param    body body     api.TaskMoveRequest true "Destination"
// @Success  200  {object} api.TaskResponse
// @Failure  400  {object} api.ErrorResponse
// @Failure  403  {object} api.ErrorResponse
// @Failure  404  {object} api.ErrorResponse
// @Failure  503  {object} api.ErrorResponse
// @Router   /tasks/{id}/move [post]
func (h *TaskHandler) MoveTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	var req api.TaskMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.svc.MoveTask(c.Request.Context(), userID, taskID, req.ListID, *req.Index)
	if err != nil {
		respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, api.NewTaskResponse(*task))
}

// AssignUser назначает участника доски на задачу
// @Summary  Assign task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id   path     string                true "Task ID"
// @Param    body body     api.TaskAssignRequest true "Assignee"
// @Success  200  {object} api.TaskResponse
// @Router   /tasks/{id}/assign [post]
func (h *TaskHandler) AssignUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	var req api.TaskAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.svc.AssignTask(c.Request.Context(), userID, taskID, req.UserID)
	if err != nil {
		respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, api.NewTaskResponse(*task))
}

// UnassignUser снимает назначение с задачи
// @Summary  Unassign task
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Param    id  path     string true "Task ID"
// @Success  200 {object} api.TaskResponse
// @Router   /tasks/{id}/assign [delete]
func (h *TaskHandler) UnassignUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := paramID(c, "id", "task")
	if !ok {
		return
	}

	task, err := h.svc.UnassignTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err, "Task")
		return
	}
	c.JSON(http.StatusOK, api.NewTaskResponse(*task))
}
