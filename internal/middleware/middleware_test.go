package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskPlanner/internal/auth"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// TestRequestID тестирует генерацию и проброс X-Request-ID
func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "given", seen)

	// произвольный ввод клиента в журнал не попадает
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad id\nforged=1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.NotEqual(t, "bad id\nforged=1", seen)
	assert.Len(t, seen, 36)
}

// TestLogging тестирует, что middleware не меняет ответ
func TestLogging(t *testing.T) {
	h := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("body"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "body", rr.Body.String())
}

// TestLogging_RoutePattern тестирует, что в журнал попадает шаблон маршрута и уровень по статусу
func TestLogging_RoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = prev })

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Get("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tasks/42", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	out := logs.FilterMessage("HTTP_OUT: Завершение запроса").All()
	require.Len(t, out, 1)
	fields := out[0].ContextMap()
	assert.Equal(t, "/api/tasks/{id}", fields["route"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, rr.Header().Get("X-Request-ID"), fields["request_id"])
	assert.Equal(t, zapcore.WarnLevel, out[0].Level)
}

// TestRateLimit тестирует отказ после исчерпания лимита
func TestRateLimit(t *testing.T) {
	h := middleware.RateLimit(2)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

	// другой клиент не затронут
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// TestRateLimiter_EvictsExpiredClients тестирует, что окна ушедших клиентов
// удаляются и карта не растёт бесконечно
func TestRateLimiter_EvictsExpiredClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := middleware.NewRateLimiter(5,
		middleware.WithPeriod(time.Minute),
		middleware.WithClock(func() time.Time { return now }),
	)
	h := limiter.Middleware(http.HandlerFunc(okHandler))

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusOK, hit(fmt.Sprintf("10.0.%d.%d", i/256, i%256)))
	}
	assert.Equal(t, 100, limiter.Clients())

	// окно ещё не истекло: ничего не удаляется
	now = now.Add(30 * time.Second)
	hit("10.9.9.9")
	assert.Equal(t, 101, limiter.Clients())

	// после окна остаётся только новый клиент
	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit("10.8.8.8"))
	assert.Equal(t, 1, limiter.Clients())
}

// TestRateLimiter_WindowReset тестирует сброс счётчика после окна
func TestRateLimiter_WindowReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := middleware.NewRateLimiter(1, middleware.WithClock(func() time.Time { return now }))
	h := limiter.Middleware(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	now = now.Add(time.Minute)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

// TestNoCache тестирует заголовки запрета кэширования
func TestNoCache(t *testing.T) {
	rr := httptest.NewRecorder()
	middleware.NoCache(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, "no-cache", rr.Header().Get("Pragma"))
	assert.Equal(t, "0", rr.Header().Get("Expires"))
}

// TestSession тестирует извлечение пользователя из cookie и Bearer-токена
func TestSession(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	token, err := tokens.IssueSession(7, "Ada Lovelace")
	require.NoError(t, err)

	var (
		got middleware.Identity
		ok  bool
	)
	h := middleware.Session(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = middleware.IdentityFrom(r.Context())
	}))

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantOK  bool
	}{
		{
			name: "cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
			},
			wantOK: true,
		},
		{
			name: "bearer",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+token)
			},
			wantOK: true,
		},
		{
			name:    "anonymous",
			prepare: func(r *http.Request) {},
		},
		{
			name: "forged",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token + "x"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok = middleware.Identity{}, false
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			tt.prepare(req)

			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, int64(7), got.UserID)
				assert.Equal(t, "Ada Lovelace", got.Name)
			}
		})
	}
}

// TestAppLock тестирует блокировку API общим паролем
func TestAppLock(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	unlock, err := tokens.IssueUnlock()
	require.NoError(t, err)

	h := middleware.AppLock(tokens, true)(http.HandlerFunc(okHandler))

	tests := []struct {
		name    string
		path    string
		prepare func(r *http.Request)
		want    int
	}{
		{name: "locked api", path: "/api/tasks", prepare: func(r *http.Request) {}, want: http.StatusForbidden},
		{name: "unlock path", path: middleware.UnlockPath, prepare: func(r *http.Request) {}, want: http.StatusOK},
		{name: "health", path: "/health", prepare: func(r *http.Request) {}, want: http.StatusOK},
		{
			name: "cookie",
			path: "/api/tasks",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: middleware.UnlockCookie, Value: unlock})
			},
			want: http.StatusOK,
		},
		{
			name: "header",
			path: "/api/users",
			prepare: func(r *http.Request) {
				r.Header.Set(middleware.UnlockHeader, unlock)
			},
			want: http.StatusOK,
		},
		{
			name: "bad token",
			path: "/api/users",
			prepare: func(r *http.Request) {
				r.Header.Set(middleware.UnlockHeader, "nope")
			},
			want: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, rr.Body.String(), "APP_LOCKED")
			}
		})
	}
}

// TestAppLock_Disabled тестирует, что без пароля приложения блокировки нет
func TestAppLock_Disabled(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	rr := httptest.NewRecorder()

	middleware.AppLock(tokens, false)(http.HandlerFunc(okHandler)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPasswordMatches(t *testing.T) {
	assert.True(t, middleware.PasswordMatches("abc", "abc"))
	assert.False(t, middleware.PasswordMatches("abc", "abd"))
	assert.False(t, middleware.PasswordMatches("", "abc"))
}
