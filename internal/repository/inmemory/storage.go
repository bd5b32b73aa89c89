package inmemory

import (
	"context"
	"sync"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"
)

type state struct {
	users    map[int64]user.User
	tasks    map[int64]task.Task
	comments map[int64]comment.Comment

	lastUserID    int64
	lastTaskID    int64
	lastCommentID int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]user.User),
		tasks:    make(map[int64]task.Task),
		comments: make(map[int64]comment.Comment),
	}
}

func (s *state) clone() *state {
	cp := *s
	cp.users = make(map[int64]user.User, len(s.users))
	for k, v := range s.users {
		cp.users[k] = v
	}
	cp.tasks = make(map[int64]task.Task, len(s.tasks))
	for k, v := range s.tasks {
		cp.tasks[k] = v
	}
	cp.comments = make(map[int64]comment.Comment, len(s.comments))
	for k, v := range s.comments {
		cp.comments[k] = v
	}
	return &cp
}

// Storage хранит всё в памяти процесса. Транзакция держит мьютекс целиком,
// при ошибке состояние откатывается к снимку.
type Storage struct {
	mtx *sync.RWMutex
	st  *state
	now func() time.Time
}

func NewStorage() *Storage {
	return &Storage{
		mtx: &sync.RWMutex{},
		st:  newState(),
		now: time.Now,
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Close() {}

func (s *Storage) tx() *txRepo {
	return &txRepo{st: s.st, now: s.now}
}

func (s *Storage) WithTx(ctx context.Context, fn func(tx repo.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.tx()); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tx().CreateUser(ctx, u)
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().GetUserByID(ctx, id)
}

func (s *Storage) GetUserByName(ctx context.Context, firstName, lastName string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().GetUserByName(ctx, firstName, lastName)
}

func (s *Storage) GetUserByDisplayName(ctx context.Context, displayName string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().GetUserByDisplayName(ctx, displayName)
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().ListUsers(ctx)
}

func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tx().DeleteUser(ctx, id)
}

func (s *Storage) CreateTask(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tx().CreateTask(ctx, t)
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().GetTask(ctx, id)
}

// LockTask вне транзакции эквивалентен GetTask
func (s *Storage) LockTask(ctx context.Context, id int64) (*task.Task, error) {
	return s.GetTask(ctx, id)
}

func (s *Storage) GetTaskView(ctx context.Context, id int64) (*task.View, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().GetTaskView(ctx, id)
}

func (s *Storage) ListTasksFor(ctx context.Context, userID int64) ([]*task.View, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().ListTasksFor(ctx, userID)
}

func (s *Storage) UpdateTask(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tx().UpdateTask(ctx, t)
}

func (s *Storage) DeleteTaskByCreator(ctx context.Context, id, creatorID int64) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tx().DeleteTaskByCreator(ctx, id, creatorID)
}

func (s *Storage) TaskExists(ctx context.Context, id int64) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().TaskExists(ctx, id)
}

func (s *Storage) AddComment(ctx context.Context, c *comment.Comment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.tx().AddComment(ctx, c)
}

func (s *Storage) ListComments(ctx context.Context, taskID int64) ([]*comment.View, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().ListComments(ctx, taskID)
}

func (s *Storage) ListCommentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]*comment.View, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.tx().ListCommentsForTasks(ctx, taskIDs)
}

var _ repo.Storage = (*Storage)(nil)
