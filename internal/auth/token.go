package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("недействительный токен")
	ErrExpiredToken = errors.New("срок действия токена истёк")
)

const (
	TokenTypeSession = "session"
	TokenTypeUnlock  = "unlock"
)

const issuer = "task-planner"

type Claims struct {
	UserID    int64  `json:"user_id,omitempty"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет подписанные HS256 токены: сессию
// пользователя и отметку о снятой блокировке приложения.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) IssueSession(userID int64, name string) (string, error) {
	return m.issue(Claims{
		UserID:    userID,
		Name:      name,
		TokenType: TokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(userID, 10),
		},
	})
}

func (m *TokenManager) IssueUnlock() (string, error) {
	return m.issue(Claims{TokenType: TokenTypeUnlock})
}

func (m *TokenManager) issue(claims Claims) (string, error) {
	now := m.now()
	claims.Issuer = issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) ParseSession(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString, TokenTypeSession)
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) ValidateUnlock(tokenString string) error {
	_, err := m.parse(tokenString, TokenTypeUnlock)
	return err
}
