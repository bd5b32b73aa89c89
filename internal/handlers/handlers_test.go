package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskPlanner/internal/handlers"
	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/middleware"
	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/policy"
	"taskPlanner/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const actorID int64 = 1

// newRequest собирает запрос с пользователем в контексте и параметром id для chi
func newRequest(method, target, body string, userID int64, id string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if userID > 0 {
		ctx = middleware.WithIdentity(ctx, middleware.Identity{UserID: userID, Name: "Ada Lovelace"})
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func sampleView() *task.View {
	return &task.View{
		Task: task.Task{
			ID:         10,
			Title:      "Test Task",
			Status:     task.StatusToDo,
			Priority:   task.PriorityAlta,
			CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			CreatorID:  actorID,
			AssigneeID: 2,
		},
		AssigneeName: "Grace Hopper",
	}
}

// TestTaskHandler_HealthCheck тестирует проверку здоровья
func TestTaskHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - healthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - unhealthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("service unavailable"))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			handler := handlers.NewTaskHandler(mockService)
			w := httptest.NewRecorder()

			handler.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), "status")
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_ListTasks тестирует получение списка задач
func TestTaskHandler_ListTasks(t *testing.T) {
	tests := []struct {
		name           string
		userID         int64
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedLen    int
	}{
		{
			name:   "success - tasks with comments",
			userID: actorID,
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, actorID).Return([]*task.WithComments{
					{View: *sampleView(), Comments: []*comment.View{}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    1,
		},
		{
			name:           "anonymous - empty list",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusOK,
			expectedLen:    0,
		},
		{
			name:   "error - service error",
			userID: actorID,
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, actorID).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)
			handler := handlers.NewTaskHandler(mockService)
			w := httptest.NewRecorder()

			handler.ListTasks(w, newRequest(http.MethodGet, "/api/tasks", "", tt.userID, ""))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var response []dto.TaskWithCommentsResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Len(t, response, tt.expectedLen)
				if tt.expectedLen > 0 {
					assert.NotNil(t, response[0].Comments)
					assert.Equal(t, "Grace Hopper", *response[0].AssignedToName)
				}
			} else {
				assert.NotContains(t, w.Body.String(), "db down")
			}
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_PostTask тестирует создание задачи
func TestTaskHandler_PostTask(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    string
		contentType    string
		userID         int64
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:        "success - create task",
			requestBody: `{"title": "Test Task", "priority": "Alta", "status": "To Do", "assignTo": 2}`,
			contentType: "application/json",
			userID:      actorID,
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, actorID, service.CreateTaskInput{
					Title:    "Test Task",
					Priority: "Alta",
					Status:   "To Do",
					AssignTo: "2",
				}).Return(sampleView(), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - anonymous",
			requestBody:    `{"title": "Test Task"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "error - invalid content type",
			requestBody:    `{}`,
			contentType:    "text/plain",
			userID:         actorID,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "error - invalid JSON",
			requestBody:    `{invalid json}`,
			contentType:    "application/json",
			userID:         actorID,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - validation",
			requestBody: `{"priority": "Alta"}`,
			contentType: "application/json",
			userID:      actorID,
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, actorID, mock.Anything).
					Return(nil, service.NewInvalidArgument("title", "название задачи обязательно"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - service error",
			requestBody: `{"title": "Test Task", "priority": "Alta"}`,
			contentType: "application/json",
			userID:      actorID,
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, actorID, mock.Anything).
					Return(nil, errors.New("service error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)
			handler := handlers.NewTaskHandler(mockService)

			req := newRequest(http.MethodPost, "/api/tasks", tt.requestBody, tt.userID, "")
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			handler.PostTask(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				var response struct {
					Task dto.TaskResponse `json:"task"`
				}
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "Test Task", response.Task.Title)
				assert.Equal(t, actorID, response.Task.CreatedBy)
				assert.Equal(t, int64(2), response.Task.UserID)
			}
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_UpdateTask тестирует частичное обновление
func TestTaskHandler_UpdateTask(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		requestBody    string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name:        "success - status only",
			id:          "10",
			requestBody: `{"status": "Done"}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, actorID, int64(10), task.NewUpdate(task.WithStatus("Done"))).
					Return(sampleView(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - bad id",
			id:             "abc",
			requestBody:    `{"status": "Done"}`,
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - permission denied",
			id:          "10",
			requestBody: `{"title": "x"}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, actorID, int64(10), task.NewUpdate(task.WithTitle("x"))).
					Return(nil, service.NewPermissionDenied("Нет прав", policy.ErrPermissionDenied))
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:        "error - not found",
			id:          "99",
			requestBody: `{"status": "Done"}`,
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, actorID, int64(99), mock.Anything).
					Return(nil, service.NewNotFound(service.ResourceTask, 99))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)
			handler := handlers.NewTaskHandler(mockService)
			w := httptest.NewRecorder()

			handler.UpdateTask(w, newRequest(http.MethodPut, "/api/tasks/"+tt.id, tt.requestBody, actorID, tt.id))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"last_comment":null`)
			}
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_DeleteTask тестирует удаление задачи
func TestTaskHandler_DeleteTask(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success",
			setupMock: func(m *MockTaskService) {
				m.On("DeleteTask", mock.Anything, actorID, int64(10)).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "error - not creator",
			setupMock: func(m *MockTaskService) {
				m.On("DeleteTask", mock.Anything, actorID, int64(10)).
					Return(service.NewPermissionDenied("Удалить задачу может только создатель", nil))
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "error - not found",
			setupMock: func(m *MockTaskService) {
				m.On("DeleteTask", mock.Anything, actorID, int64(10)).
					Return(service.NewNotFound(service.ResourceTask, 10))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)
			handler := handlers.NewTaskHandler(mockService)
			w := httptest.NewRecorder()

			handler.DeleteTask(w, newRequest(http.MethodDelete, "/api/tasks/10", "", actorID, "10"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_Comments тестирует добавление и чтение комментариев
func TestTaskHandler_Comments(t *testing.T) {
	created := &comment.View{
		Comment: comment.Comment{
			ID:        3,
			TaskID:    10,
			AuthorID:  actorID,
			Content:   "hello",
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		AuthorName: "Ada Lovelace",
	}

	t.Run("post", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("AddComment", mock.Anything, actorID, int64(10), "hello").Return(created, nil)
		handler := handlers.NewTaskHandler(mockService)
		w := httptest.NewRecorder()

		handler.PostComment(w, newRequest(http.MethodPost, "/api/tasks/10/comments", `{"content": "hello"}`, actorID, "10"))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"user_name":"Ada Lovelace"`)
		assert.Contains(t, w.Body.String(), `"created_at":"2026-01-02 03:04:05"`)
		mockService.AssertExpectations(t)
	})

	t.Run("post empty", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("AddComment", mock.Anything, actorID, int64(10), "").
			Return(nil, service.NewInvalidArgument("content", "комментарий не может быть пустым"))
		handler := handlers.NewTaskHandler(mockService)
		w := httptest.NewRecorder()

		handler.PostComment(w, newRequest(http.MethodPost, "/api/tasks/10/comments", `{"content": ""}`, actorID, "10"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), service.CodeInvalidArgument)
	})

	t.Run("list", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("ListComments", mock.Anything, actorID, int64(10)).Return([]*comment.View{created}, nil)
		handler := handlers.NewTaskHandler(mockService)
		w := httptest.NewRecorder()

		handler.ListComments(w, newRequest(http.MethodGet, "/api/tasks/10/comments", "", actorID, "10"))

		require.Equal(t, http.StatusOK, w.Code)
		var response []dto.CommentResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 1)
		assert.Equal(t, "hello", response[0].Content)
	})

	t.Run("list anonymous", func(t *testing.T) {
		handler := handlers.NewTaskHandler(new(MockTaskService))
		w := httptest.NewRecorder()

		handler.ListComments(w, newRequest(http.MethodGet, "/api/tasks/10/comments", "", 0, "10"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
