package handlers

import (
	"context"
	"time"

	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
	"taskPlanner/internal/service"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, actorID int64, in service.CreateTaskInput) (*task.View, error)
	ListTasks(ctx context.Context, actorID int64) ([]*task.WithComments, error)
	UpdateTask(ctx context.Context, actorID, taskID int64, update task.Update) (*task.View, error)
	DeleteTask(ctx context.Context, actorID, taskID int64) error
	AddComment(ctx context.Context, actorID, taskID int64, content string) (*comment.View, error)
	ListComments(ctx context.Context, actorID, taskID int64) ([]*comment.View, error)
}

type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*user.User, error)
	Authenticate(ctx context.Context, creds service.Credentials) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.Summary, error)
	DeleteUser(ctx context.Context, userID int64, adminPassword string) error
}

type TokenIssuer interface {
	IssueSession(userID int64, name string) (string, error)
	IssueUnlock() (string, error)
	TTL() time.Duration
}

var (
	_ TaskService = (*service.TaskService)(nil)
	_ UserService = (*service.UserService)(nil)
)
