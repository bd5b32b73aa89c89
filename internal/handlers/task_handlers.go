package handlers

import (
	"net/http"
	"time"

	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"
	"taskPlanner/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		logger.Warn("HTTP: Запрос без авторизации",
			zap.String("path", r.URL.Path),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, "Требуется авторизация")
		return 0, false
	}
	return userID, true
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, ok := dto.ParseID(raw)
	if !ok {
		logger.Warn("HTTP: Неверный id задачи",
			zap.String("id", raw),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "Неверный id задачи")
		return 0, false
	}
	return id, true
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис недоступен", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("time", time.Now().UTC()),
		)
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("time", time.Now().UTC()),
	)
}

// ListTasks - задачи текущего пользователя с комментариями; анонимный запрос
// получает пустой список
func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, []dto.TaskWithCommentsResponse{})
		return
	}

	tasks, err := s.TaskService.ListTasks(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, "Не удалось получить задачи")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	logger.Info("HTTP: Вызов сервиса для создания задачи", zap.Int64("user_id", userID))

	created, err := s.TaskService.CreateTask(r.Context(), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignTo:    string(req.AssignTo),
	})
	if err != nil {
		handleServiceError(w, r, err, "Не удалось создать задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("message", "Задача создана"),
		toPayload("task", dto.FromTask(created)),
	)
}

func (s *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), userID, taskID, req.ToUpdate())
	if err != nil {
		handleServiceError(w, r, err, "Не удалось обновить задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.Int64("task_id", taskID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Задача обновлена"),
		toPayload("task", dto.FromTaskDetails(updated)),
	)
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), userID, taskID); err != nil {
		handleServiceError(w, r, err, "Не удалось удалить задачу")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.Int64("task_id", taskID),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("message", "Задача удалена"))
}

func (s *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	comments, err := s.TaskService.ListComments(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, r, err, "Не удалось получить комментарии")
		return
	}

	writeJSON(w, http.StatusOK, dto.FromCommentList(comments))
}

func (s *TaskHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.TaskService.AddComment(r.Context(), userID, taskID, req.Content)
	if err != nil {
		handleServiceError(w, r, err, "Не удалось добавить комментарий")
		return
	}

	logger.Info("HTTP_OUT: Комментарий добавлен",
		zap.Int64("task_id", taskID),
		zap.Int64("comment_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("message", "Комментарий добавлен"),
		toPayload("comment", dto.FromComment(created)),
	)
}
