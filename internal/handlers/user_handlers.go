package handlers

import (
	"net/http"
	"time"

	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"
	"taskPlanner/internal/models/user"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	Users UserService
}

func NewUserHandler(users UserService) UserHandler {
	return UserHandler{Users: users}
}

// ListUsers - список для выбора исполнителя; анонимный запрос получает пустой список
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if _, ok := middleware.UserID(r.Context()); !ok {
		writeJSON(w, http.StatusOK, []user.Summary{})
		return
	}

	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "Не удалось получить пользователей")
		return
	}

	logger.Info("HTTP_OUT: Пользователи получены",
		zap.Int("count", len(users)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromUsers(users))
}

// DeleteUser доступен только с сессией и требует пароль администратора в теле запроса
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, ok := dto.ParseID(chi.URLParam(r, "id"))
	if !ok {
		logger.Warn("HTTP: Неверный id пользователя", zap.String("id", chi.URLParam(r, "id")))
		responseWithError(w, http.StatusBadRequest, "Неверный id пользователя")
		return
	}

	var req dto.DeleteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id, req.Password); err != nil {
		handleServiceError(w, r, err, "Не удалось удалить пользователя")
		return
	}

	logger.Info("HTTP_OUT: Пользователь удалён",
		zap.Int64("user_id", id),
		zap.Int64("actor_id", actorID),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("message", "Пользователь удалён"))
}
