package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"taskPlanner/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

const RequestIDHeader = "X-Request-ID"

// входящий id принимается только в таком виде, иначе генерируется новый
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(RequestIDHeader)
		if !requestIDPattern.MatchString(requestId) {
			requestId = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestId)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIdKey, requestId)))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

// statusRecorder запоминает код и размер ответа для журнала
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
		sr.ResponseWriter.WriteHeader(code)
	}
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zap.ErrorLevel
	case status >= 400:
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}

// Logging пишет строку на вход и на выход запроса. В выходной строке есть
// шаблон маршрута chi ("/api/tasks/{id}"), по нему удобно группировать.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestId := GetRequestID(r.Context())

		logger.HttpRequestInfo(r, "HTTP_IN: Начало запроса", zap.String("request_id", requestId))

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		logger.Log(
			levelFor(rec.status),
			"HTTP_OUT: Завершение запроса",
			zap.String("request_id", requestId),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Int("bytes_written", rec.size),
			zap.Duration("ms", time.Since(start)),
		)
	})
}

// NoCache запрещает кэширование ответов API: данные зависят от сессии
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
