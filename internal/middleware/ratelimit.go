package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter - фиксированное окно на IP клиента. Окна, время которых
// истекло, удаляются при очередном обращении не чаще раза за окно.
type RateLimiter struct {
	limit     int
	period    time.Duration
	now       func() time.Time
	mtx       sync.Mutex
	clients   map[string]*window
	nextSweep time.Time
}

type RateLimitOption func(*RateLimiter)

func WithPeriod(period time.Duration) RateLimitOption {
	return func(l *RateLimiter) {
		if period > 0 {
			l.period = period
		}
	}
}

func WithClock(now func() time.Time) RateLimitOption {
	return func(l *RateLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewRateLimiter(limit int, options ...RateLimitOption) *RateLimiter {
	l := &RateLimiter{
		limit:   limit,
		period:  time.Minute,
		now:     time.Now,
		clients: make(map[string]*window),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// RateLimit ограничивает число запросов с одного IP за минуту
func RateLimit(rpm int) func(http.Handler) http.Handler {
	return NewRateLimiter(rpm).Middleware
}

// Clients - сколько клиентов сейчас отслеживается
func (l *RateLimiter) Clients() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

// take учитывает запрос и возвращает остаток, момент сброса и разрешён ли запрос
func (l *RateLimiter) take(ip string) (int, time.Time, bool) {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !now.Before(l.nextSweep) {
		l.sweep(now)
	}

	w, ok := l.clients[ip]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.clients[ip] = w
	}
	if w.count >= l.limit {
		return 0, w.resetAt, false
	}
	w.count++
	return l.limit - w.count, w.resetAt, true
}

func (l *RateLimiter) sweep(now time.Time) {
	before := len(l.clients)
	for ip, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, ip)
		}
	}
	l.nextSweep = now.Add(l.period)
	if removed := before - len(l.clients); removed > 0 {
		logger.Debug("HTTP: Очищены окна лимита", zap.Int("removed", removed), zap.Int("active", len(l.clients)))
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, resetAt, allowed := l.take(clientIP(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(resetAt.Sub(l.now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Слишком много запросов. Попробуйте позже.",
				"retry_after": retryAfter,
				"request_id":  GetRequestID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
