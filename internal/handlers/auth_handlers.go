package handlers

import (
	"net/http"
	"time"

	"taskPlanner/internal/handlers/dto"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"
	"taskPlanner/internal/service"

	"go.uber.org/zap"
)

type AuthHandler struct {
	Users       UserService
	Tokens      TokenIssuer
	AppPassword string
	// SecureCookies выставляет флаг Secure, когда сервер работает за HTTPS
	SecureCookies bool
}

func NewAuthHandler(users UserService, tokens TokenIssuer, appPassword string, secureCookies bool) AuthHandler {
	return AuthHandler{
		Users:         users,
		Tokens:        tokens,
		AppPassword:   appPassword,
		SecureCookies: secureCookies,
	}
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Unlock снимает блокировку приложения общим паролем
func (h *AuthHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if h.AppPassword == "" {
		responseWithJSON(w, http.StatusOK, toPayload("message", "Блокировка приложения отключена"))
		return
	}

	var req dto.UnlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !middleware.PasswordMatches(req.Password, h.AppPassword) {
		logger.Warn("HTTP: Неверный пароль приложения", zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, "Неверный пароль")
		return
	}

	token, err := h.Tokens.IssueUnlock()
	if err != nil {
		handleServiceError(w, r, err, "Не удалось разблокировать приложение")
		return
	}
	h.setCookie(w, middleware.UnlockCookie, token, h.Tokens.TTL())

	logger.Info("HTTP_OUT: Приложение разблокировано", zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Приложение разблокировано"),
		toPayload("token", token),
	)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var req dto.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Password != req.ConfirmPassword {
		logger.Warn("HTTP: Пароли не совпадают", zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "Пароли не совпадают")
		return
	}

	created, err := h.Users.Register(r.Context(), service.RegisterInput{
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err, "Не удалось зарегистрировать пользователя")
		return
	}

	logger.Info("HTTP_OUT: Пользователь зарегистрирован",
		zap.Int64("user_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("message", "Регистрация прошла успешно"),
		toPayload("user", created.Summary()),
	)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var req dto.SigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	found, err := h.Users.Authenticate(r.Context(), service.Credentials{
		FullName:  req.FullName,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err, "Не удалось выполнить вход")
		return
	}

	token, err := h.Tokens.IssueSession(found.ID, found.DisplayName())
	if err != nil {
		handleServiceError(w, r, err, "Не удалось выполнить вход")
		return
	}
	h.setCookie(w, middleware.SessionCookie, token, h.Tokens.TTL())

	logger.Info("HTTP_OUT: Вход выполнен",
		zap.Int64("user_id", found.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Вход выполнен"),
		toPayload("user", found.DisplayName()),
		toPayload("user_id", found.ID),
		toPayload("token", token),
	)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	h.clearCookie(w, middleware.SessionCookie)
	responseWithJSON(w, http.StatusOK, toPayload("message", "Выход выполнен"))
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, dto.SessionResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, dto.SessionResponse{
		Authenticated: true,
		User:          identity.Name,
		UserID:        identity.UserID,
	})
}
