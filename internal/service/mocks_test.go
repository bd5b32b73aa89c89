package service_test

import (
	"context"

	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockStorage - мок хранилища; WithTx выполняет функцию на самом моке
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) WithTx(ctx context.Context, fn func(tx repo.Repository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockStorage) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() {
	m.Called()
}

func (m *MockStorage) CreateUser(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStorage) GetUserByName(ctx context.Context, firstName, lastName string) (*user.User, error) {
	args := m.Called(ctx, firstName, lastName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStorage) GetUserByDisplayName(ctx context.Context, displayName string) (*user.User, error) {
	args := m.Called(ctx, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStorage) ListUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockStorage) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStorage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockStorage) LockTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockStorage) GetTaskView(ctx context.Context, id int64) (*task.View, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.View), args.Error(1)
}

func (m *MockStorage) ListTasksFor(ctx context.Context, userID int64) ([]*task.View, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.View), args.Error(1)
}

func (m *MockStorage) UpdateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStorage) DeleteTaskByCreator(ctx context.Context, id, creatorID int64) (bool, error) {
	args := m.Called(ctx, id, creatorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) TaskExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AddComment(ctx context.Context, c *comment.Comment) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) ListComments(ctx context.Context, taskID int64) ([]*comment.View, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*comment.View), args.Error(1)
}

func (m *MockStorage) ListCommentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]*comment.View, error) {
	args := m.Called(ctx, taskIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]*comment.View), args.Error(1)
}

var _ repo.Storage = (*MockStorage)(nil)
