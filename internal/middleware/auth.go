package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"taskPlanner/internal/auth"
	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

const (
	SessionCookie = "planner_session"
	UnlockCookie  = "planner_unlock"
	UnlockHeader  = "X-App-Token"
	// UnlockPath всегда доступен, иначе приложение не разблокировать
	UnlockPath = "/api/unlock"
)

const identityKey contextKey = "identity"

type Identity struct {
	UserID int64
	Name   string
}

type SessionParser interface {
	ParseSession(token string) (*auth.Claims, error)
}

type UnlockValidator interface {
	ValidateUnlock(token string) error
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID > 0
}

func UserID(ctx context.Context) (int64, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}

// Session кладёт в контекст пользователя из cookie или заголовка
// Authorization: Bearer. Невалидный токен означает анонимный запрос.
func Session(tokens SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := sessionToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.ParseSession(raw)
			if err != nil {
				logger.Warn("HTTP: Невалидная сессия",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Name: claims.Name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// AppLock закрывает /api/* до ввода общего пароля приложения.
// Если пароль не задан, блокировка выключена.
func AppLock(tokens UnlockValidator, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == UnlockPath {
				next.ServeHTTP(w, r)
				return
			}

			if err := tokens.ValidateUnlock(unlockToken(r)); err != nil {
				logger.Warn("HTTP: Приложение заблокировано",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]any{
					"error":   "APP_LOCKED",
					"message": "Приложение заблокировано. Введите пароль.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unlockToken(r *http.Request) string {
	if h := r.Header.Get(UnlockHeader); h != "" {
		return h
	}
	if c, err := r.Cookie(UnlockCookie); err == nil {
		return c.Value
	}
	return ""
}

// PasswordMatches сравнивает пароли за постоянное время
func PasswordMatches(given, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
