package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"

	"go.uber.org/zap"
)

const MinPasswordLength = 6

// MaxPasswordBytes - предел bcrypt: длиннее пароль не хешируется
const MaxPasswordBytes = 72

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type UserService struct {
	store         repo.Storage
	hasher        PasswordHasher
	adminPassword string

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(store repo.Storage, hasher PasswordHasher, adminPassword string) *UserService {
	return &UserService{
		store:         store,
		hasher:        hasher,
		adminPassword: adminPassword,
	}
}

// RegisterInput: либо FullName ("Имя Фамилия"), либо пара FirstName/LastName
type RegisterInput struct {
	FullName  string
	FirstName string
	LastName  string
	Password  string
}

type Credentials struct {
	FullName  string
	FirstName string
	LastName  string
	Password  string
}

func resolveName(fullName, firstName, lastName string) (string, string, bool) {
	if fullName = strings.TrimSpace(fullName); fullName != "" {
		first, last := user.SplitFullName(fullName)
		return first, last, true
	}
	first, last := strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if first == "" && last == "" {
		return "", "", false
	}
	if first == "" {
		first = user.LastNamePlaceholder
	}
	if last == "" {
		last = user.LastNamePlaceholder
	}
	return first, last, true
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	first, last, ok := resolveName(in.FullName, in.FirstName, in.LastName)
	if !ok {
		return nil, NewInvalidArgument("fullName", "имя и фамилия обязательны")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, NewInvalidArgument("password", fmt.Sprintf("пароль должен быть не короче %d символов", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, NewInvalidArgument("password", fmt.Sprintf("пароль должен быть не длиннее %d байт", MaxPasswordBytes))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		logger.Error("Service: Не удалось захешировать пароль", err)
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	newUser := &user.User{FirstName: first, LastName: last, PasswordHash: hash}
	err = s.store.WithTx(ctx, func(tx repo.Repository) error {
		// вход идёт по строке "имя фамилия", поэтому она тоже должна быть уникальной
		_, err := tx.GetUserByDisplayName(ctx, newUser.DisplayName())
		switch {
		case err == nil:
			return repo.ErrConflict
		case !errors.Is(err, repo.ErrNotFound):
			return fmt.Errorf("проверка имени: %w", err)
		}
		return tx.CreateUser(ctx, newUser)
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			logger.Info("Service: Пользователь уже существует", zap.String("name", newUser.DisplayName()))
			return nil, NewConflict("Пользователь уже существует")
		}
		return nil, fmt.Errorf("регистрация пользователя: %w", err)
	}

	logger.Info("Service: Пользователь зарегистрирован",
		zap.Int64("user_id", newUser.ID),
		zap.String("name", newUser.DisplayName()))
	return newUser, nil
}

// Authenticate не различает "нет пользователя" и "неверный пароль": для
// неизвестного пользователя сравнение идёт с заранее посчитанным хешем,
// чтобы время ответа не выдавало разницу
func (s *UserService) Authenticate(ctx context.Context, creds Credentials) (*user.User, error) {
	if creds.Password == "" {
		return nil, NewInvalidArgument("password", "пароль обязателен")
	}

	var (
		found *user.User
		err   error
	)
	fullName := strings.TrimSpace(creds.FullName)
	first, last := strings.TrimSpace(creds.FirstName), strings.TrimSpace(creds.LastName)
	switch {
	case fullName != "":
		found, err = s.store.GetUserByDisplayName(ctx, fullName)
	case first != "" && last != "":
		found, err = s.store.GetUserByName(ctx, first, last)
	default:
		return nil, NewInvalidArgument("fullName", "имя пользователя обязательно")
	}

	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.hasher.Verify(creds.Password, s.dummy())
			return nil, NewInvalidCredentials()
		}
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}
	if !s.hasher.Verify(creds.Password, found.PasswordHash) {
		logger.Info("Service: Неудачная попытка входа", zap.Int64("user_id", found.ID))
		return nil, NewInvalidCredentials()
	}
	return found, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("planner-dummy-password")
		if err != nil {
			logger.Warn("Service: Не удалось подготовить фиктивный хеш", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *UserService) ListUsers(ctx context.Context) ([]user.Summary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	res := make([]user.Summary, 0, len(users))
	for _, u := range users {
		res = append(res, u.Summary())
	}
	return res, nil
}

// DeleteUser - административная операция, защищённая отдельным паролем.
// Комментарии пользователя удаляются вместе с ним, задачи сохраняют его id.
func (s *UserService) DeleteUser(ctx context.Context, userID int64, adminPassword string) error {
	if s.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(adminPassword), []byte(s.adminPassword)) != 1 {
		logger.Warn("Service: Неверный пароль администратора", zap.Int64("target_id", userID))
		return NewPermissionDenied("Неверный пароль администратора", nil)
	}

	err := s.store.WithTx(ctx, func(tx repo.Repository) error {
		return tx.DeleteUser(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFound(ResourceUser, userID)
		}
		return fmt.Errorf("удаление пользователя: %w", err)
	}

	logger.Info("Service: Пользователь удалён", zap.Int64("user_id", userID))
	return nil
}
