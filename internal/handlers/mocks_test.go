package handlers_test

import (
	"context"
	"time"

	"taskPlanner/internal/handlers"
	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
	"taskPlanner/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockTaskService - мок сервиса задач
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) CreateTask(ctx context.Context, actorID int64, in service.CreateTaskInput) (*task.View, error) {
	args := m.Called(ctx, actorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.View), args.Error(1)
}

func (m *MockTaskService) ListTasks(ctx context.Context, actorID int64) ([]*task.WithComments, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.WithComments), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, actorID, taskID int64, update task.Update) (*task.View, error) {
	args := m.Called(ctx, actorID, taskID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.View), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, actorID, taskID int64) error {
	args := m.Called(ctx, actorID, taskID)
	return args.Error(0)
}

func (m *MockTaskService) AddComment(ctx context.Context, actorID, taskID int64, content string) (*comment.View, error) {
	args := m.Called(ctx, actorID, taskID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*comment.View), args.Error(1)
}

func (m *MockTaskService) ListComments(ctx context.Context, actorID, taskID int64) ([]*comment.View, error) {
	args := m.Called(ctx, actorID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*comment.View), args.Error(1)
}

// MockUserService - мок сервиса пользователей
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in service.RegisterInput) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, creds service.Credentials) (*user.User, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]user.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.Summary), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID int64, adminPassword string) error {
	args := m.Called(ctx, userID, adminPassword)
	return args.Error(0)
}

// stubTokens выдаёт предсказуемые токены
type stubTokens struct{}

func (stubTokens) IssueSession(userID int64, name string) (string, error) {
	return "session-token", nil
}

func (stubTokens) IssueUnlock() (string, error) {
	return "unlock-token", nil
}

func (stubTokens) TTL() time.Duration {
	return time.Hour
}

var (
	_ handlers.TaskService = (*MockTaskService)(nil)
	_ handlers.UserService = (*MockUserService)(nil)
	_ handlers.TokenIssuer = stubTokens{}
)
