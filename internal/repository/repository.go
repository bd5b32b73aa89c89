package repository

import (
	"context"

	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
)

type Users interface {
	// CreateUser заполняет ID и CreatedAt; дубликат пары имя+фамилия - ErrConflict
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
	GetUserByName(ctx context.Context, firstName, lastName string) (*user.User, error)
	// GetUserByDisplayName ищет по строке "имя фамилия"
	GetUserByDisplayName(ctx context.Context, displayName string) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type Tasks interface {
	CreateTask(ctx context.Context, t *task.Task) error
	GetTask(ctx context.Context, id int64) (*task.Task, error)
	// LockTask читает задачу с блокировкой строки до конца транзакции
	LockTask(ctx context.Context, id int64) (*task.Task, error)
	GetTaskView(ctx context.Context, id int64) (*task.View, error)
	// ListTasksFor - задачи, где пользователь создатель или исполнитель, новые первыми
	ListTasksFor(ctx context.Context, userID int64) ([]*task.View, error)
	UpdateTask(ctx context.Context, t *task.Task) error
	// DeleteTaskByCreator удаляет задачу вместе с комментариями, только если
	// creatorID совпадает; false - ни одна строка не удалена
	DeleteTaskByCreator(ctx context.Context, id, creatorID int64) (bool, error)
	TaskExists(ctx context.Context, id int64) (bool, error)
}

type Comments interface {
	AddComment(ctx context.Context, c *comment.Comment) error
	ListComments(ctx context.Context, taskID int64) ([]*comment.View, error)
	ListCommentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]*comment.View, error)
}

type Repository interface {
	Users
	Tasks
	Comments
}

// Storage - хранилище с транзакциями. Каждая операция записи сервиса
// выполняется внутри одного WithTx.
type Storage interface {
	Repository
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	HealthCheck(ctx context.Context) error
	Close()
}
