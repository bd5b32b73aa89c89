package handlers

import (
	"net/http"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"
	"taskPlanner/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, err error) bool {
	businessErr, ok := service.AsBusinessError(err)
	if !ok {
		return false
	}
	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

// handleServiceError отвечает на ошибку сервиса. Внутренние ошибки
// логируются целиком, а клиент получает только defaultMessage.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, defaultMessage string) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: Ошибка Service", err,
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("path", r.URL.Path))
	responseWithError(w, http.StatusInternalServerError, defaultMessage)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeInvalidArgument:
		return http.StatusBadRequest
	case service.CodeConflict:
		return http.StatusConflict
	case service.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
