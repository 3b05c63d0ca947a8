package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kanbanlive/internal/api"
	"kanbanlive/internal/board"
	"kanbanlive/internal/handler"
	"kanbanlive/internal/middleware"
	"kanbanlive/internal/model"
)

// Мок сервиса задач
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) Tasks(ctx context.Context, actor, boardID uuid.UUID, query string) ([]model.Task, error) {
	args := m.Called(ctx, actor, boardID, query)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskService) ListTasks(ctx context.Context, actor, listID uuid.UUID) ([]model.Task, error) {
	args := m.Called(ctx, actor, listID)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskService) Task(ctx context.Context, actor, taskID uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, actor, taskID)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockTaskService) CreateTask(ctx context.Context, actor, listID uuid.UUID, in board.NewTask) (*model.Task, error) {
	args := m.Called(ctx, actor, listID, in)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, actor, taskID uuid.UUID, upd board.TaskUpdate) (*model.Task, error) {
	args := m.Called(ctx, actor, taskID, upd)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, actor, taskID uuid.UUID) error {
	return m.Called(ctx, actor, taskID).Error(0)
}

func (m *MockTaskService) MoveTask(ctx context.Context, actor, taskID, listID uuid.UUID, index int) (*model.Task, error) {
	args := m.Called(ctx, actor, taskID, listID, index)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockTaskService) AssignTask(ctx context.Context, actor, taskID, userID uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, actor, taskID, userID)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func (m *MockTaskService) UnassignTask(ctx context.Context, actor, taskID uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, actor, taskID)
	return taskOrNil(args.Get(0)), args.Error(1)
}

func taskOrNil(v any) *model.Task {
	if v == nil {
		return nil
	}
	return v.(*model.Task)
}

// Мок сервиса списков
type MockListService struct {
	mock.Mock
}

func (m *MockListService) Lists(ctx context.Context, actor, boardID uuid.UUID) ([]model.List, error) {
	args := m.Called(ctx, actor, boardID)
	return args.Get(0).([]model.List), args.Error(1)
}

func (m *MockListService) CreateList(ctx context.Context, actor, boardID uuid.UUID, name string) (*model.List, error) {
	args := m.Called(ctx, actor, boardID, name)
	return listOrNil(args.Get(0)), args.Error(1)
}

func (m *MockListService) RenameList(ctx context.Context, actor, listID uuid.UUID, name string) (*model.List, error) {
	args := m.Called(ctx, actor, listID, name)
	return listOrNil(args.Get(0)), args.Error(1)
}

func (m *MockListService) DeleteList(ctx context.Context, actor, listID uuid.UUID) error {
	return m.Called(ctx, actor, listID).Error(0)
}

func (m *MockListService) MoveList(ctx context.Context, actor, listID uuid.UUID, index int) (*model.List, error) {
	args := m.Called(ctx, actor, listID, index)
	return listOrNil(args.Get(0)), args.Error(1)
}

func listOrNil(v any) *model.List {
	if v == nil {
		return nil
	}
	return v.(*model.List)
}

// asUser stands in for the JWT middleware.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func setupTaskRouter(userID uuid.UUID) (*gin.Engine, *MockTaskService) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := new(MockTaskService)
	h := handler.NewTaskHandler(svc)

	authorized := r.Group("/", asUser(userID))
	authorized.POST("/lists/:id/tasks", h.Create)
	authorized.GET("/boards/:id/tasks", h.GetByBoardID)
	authorized.POST("/tasks/:id/move", h.MoveTask)
	return r, svc
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestMoveTask_Success(t *testing.T) {
	userID := uuid.New()
	router, svc := setupTaskRouter(userID)
	taskID, listID := uuid.New(), uuid.New()
	moved := &model.Task{ID: taskID, ListID: listID, Title: "T1", Position: 0}
	svc.On("MoveTask", mock.Anything, userID, taskID, listID, 0).Return(moved, nil)

	resp := doJSON(router, http.MethodPost, "/tasks/"+taskID.String()+"/move",
		map[string]any{"list_id": listID, "index": 0})

	assert.Equal(t, http.StatusOK, resp.Code)
	var body api.TaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, taskID, body.ID)
	assert.Equal(t, listID, body.ListID)
	svc.AssertExpectations(t)
}

func TestMoveTask_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("%w: task", board.ErrNotFound), http.StatusNotFound},
		{"permission", board.ErrPermissionDenied, http.StatusForbidden},
		{"cross board", fmt.Errorf("%w: other board", board.ErrInvalid), http.StatusBadRequest},
		{"transient", fmt.Errorf("%w: deadlock", board.ErrTransient), http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := uuid.New()
			router, svc := setupTaskRouter(userID)
			svc.On("MoveTask", mock.Anything, userID, mock.Anything, mock.Anything, 2).Return(nil, tc.err)

			resp := doJSON(router, http.MethodPost, "/tasks/"+uuid.NewString()+"/move",
				map[string]any{"list_id": uuid.New(), "index": 2})

			assert.Equal(t, tc.status, resp.Code)
			assert.Contains(t, resp.Body.String(), `"error"`)
		})
	}
}

func TestMoveTask_BadRequest(t *testing.T) {
	router, svc := setupTaskRouter(uuid.New())

	cases := map[string]any{
		"negative index": map[string]any{"list_id": uuid.New(), "index": -1},
		"missing index":  map[string]any{"list_id": uuid.New()},
		"missing list":   map[string]any{"index": 0},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := doJSON(router, http.MethodPost, "/tasks/"+uuid.NewString()+"/move", body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}

	resp := doJSON(router, http.MethodPost, "/tasks/not-a-uuid/move", map[string]any{"list_id": uuid.New(), "index": 0})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid task ID format")
	svc.AssertNotCalled(t, "MoveTask")
}

func TestCreateTask_DefaultsAndBinding(t *testing.T) {
	userID := uuid.New()
	router, svc := setupTaskRouter(userID)
	listID := uuid.New()
	svc.On("CreateTask", mock.Anything, userID, listID, board.NewTask{Title: "Write docs"}).
		Return(&model.Task{ID: uuid.New(), ListID: listID, Title: "Write docs", Priority: model.PriorityMedium, Position: 3}, nil)

	resp := doJSON(router, http.MethodPost, "/lists/"+listID.String()+"/tasks", map[string]any{"title": "Write docs"})

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"position":3`)

	resp = doJSON(router, http.MethodPost, "/lists/"+listID.String()+"/tasks", map[string]any{"title": "x", "priority": "someday"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetByBoardID_PassesQuery(t *testing.T) {
	userID := uuid.New()
	router, svc := setupTaskRouter(userID)
	boardID := uuid.New()
	svc.On("Tasks", mock.Anything, userID, boardID, "release").Return([]model.Task{{Title: "Cut release"}}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/boards/"+boardID.String()+"/tasks?q=release", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Cut release")
}

func TestMoveList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	svc := new(MockListService)
	h := handler.NewListHandler(svc)
	r := gin.New()
	r.POST("/lists/:id/move", asUser(userID), h.Move)

	listID := uuid.New()
	svc.On("MoveList", mock.Anything, userID, listID, 1).Return(&model.List{ID: listID, Name: "Doing", Position: 1}, nil)

	resp := doJSON(r, http.MethodPost, "/lists/"+listID.String()+"/move", map[string]any{"index": 1})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"position":1`)
	svc.AssertExpectations(t)
}

func TestHandlers_RequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(MockListService)
	h := handler.NewListHandler(svc)
	r := gin.New()
	r.GET("/boards/:id/lists", h.GetAll)

	req, _ := http.NewRequest(http.MethodGet, "/boards/"+uuid.NewString()+"/lists", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Not authenticated")
}
