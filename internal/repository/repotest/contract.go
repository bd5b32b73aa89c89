// Package repotest - общий набор проверок для реализаций repository.Storage.
// Каждый бэкенд вызывает Run из своего _test.go.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory возвращает пустое хранилище для одного подтеста
type Factory func(t *testing.T) repo.Storage

func Run(t *testing.T, newStorage Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s repo.Storage)
	}{
		{"users_create_and_lookup", testUsers},
		{"users_unique_name", testUsersConflict},
		{"users_list_order", testUsersOrder},
		{"users_delete", testUsersDelete},
		{"tasks_create_and_get", testTasksCreate},
		{"tasks_list_visibility_and_order", testTasksList},
		{"tasks_update", testTasksUpdate},
		{"tasks_delete_scoped", testTasksDelete},
		{"tasks_view_last_comment", testTaskViewLastComment},
		{"comments_order", testCommentsOrder},
		{"comments_bulk", testCommentsBulk},
		{"tx_rollback", testTxRollback},
		{"tx_concurrent_comments", testConcurrentComments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStorage(t))
		})
	}
}

func mustUser(t *testing.T, s repo.Storage, first, last string) *user.User {
	t.Helper()
	u := &user.User{FirstName: first, LastName: last, PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func mustTask(t *testing.T, s repo.Storage, title string, creator, assignee int64) *task.Task {
	t.Helper()
	tk := &task.Task{
		Title:      title,
		Status:     task.StatusToDo,
		Priority:   task.PriorityAlta,
		CreatorID:  creator,
		AssigneeID: assignee,
	}
	require.NoError(t, s.CreateTask(context.Background(), tk))
	require.NotZero(t, tk.ID)
	return tk
}

func mustComment(t *testing.T, s repo.Storage, taskID, author int64, content string) *comment.Comment {
	t.Helper()
	c := &comment.Comment{TaskID: taskID, AuthorID: author, Content: content}
	require.NoError(t, s.AddComment(context.Background(), c))
	require.NotZero(t, c.ID)
	return c
}

func testUsers(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	u := mustUser(t, s, "Mario", "Rossi")
	assert.False(t, u.CreatedAt.IsZero())

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mario", byID.FirstName)
	assert.Equal(t, "hash", byID.PasswordHash)

	byName, err := s.GetUserByName(ctx, "Mario", "Rossi")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byDisplay, err := s.GetUserByDisplayName(ctx, "Mario Rossi")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byDisplay.ID)

	_, err = s.GetUserByDisplayName(ctx, "Mario Bianchi")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = s.GetUserByID(ctx, u.ID+100)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testUsersConflict(t *testing.T, s repo.Storage) {
	mustUser(t, s, "Mario", "Rossi")

	err := s.CreateUser(context.Background(), &user.User{FirstName: "Mario", LastName: "Rossi", PasswordHash: "x"})
	assert.ErrorIs(t, err, repo.ErrConflict)

	mustUser(t, s, "Mario", "Bianchi")

	// другая пара с тем же отображаемым именем
	mustUser(t, s, "Anna Maria", "Rossi")
	err = s.CreateUser(context.Background(), &user.User{FirstName: "Anna", LastName: "Maria Rossi", PasswordHash: "x"})
	assert.ErrorIs(t, err, repo.ErrConflict)

	found, err := s.GetUserByDisplayName(context.Background(), "Anna Maria Rossi")
	require.NoError(t, err)
	assert.Equal(t, "Anna Maria", found.FirstName)
}

func testUsersOrder(t *testing.T, s repo.Storage) {
	mustUser(t, s, "Zeno", "Abate")
	mustUser(t, s, "Anna", "Verdi")
	mustUser(t, s, "Anna", "Bruni")

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Anna Bruni", users[0].DisplayName())
	assert.Equal(t, "Anna Verdi", users[1].DisplayName())
	assert.Equal(t, "Zeno Abate", users[2].DisplayName())
}

func testUsersDelete(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	b := mustUser(t, s, "Luca", "Verdi")
	tk := mustTask(t, s, "shared", a.ID, b.ID)
	mustComment(t, s, tk.ID, b.ID, "by b")
	mustComment(t, s, tk.ID, a.ID, "by a")

	require.NoError(t, s.DeleteUser(ctx, b.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, b.ID), repo.ErrNotFound)

	// задача остаётся, комментарии удалённого пользователя - нет
	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.AssigneeID)

	comments, err := s.ListComments(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "by a", comments[0].Content)

	view, err := s.GetTaskView(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, view.AssigneeName)
}

func testTasksCreate(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	tk := &task.Task{
		Title:       "T",
		Description: "desc",
		Status:      task.StatusToDo,
		Priority:    task.PriorityAlta,
		DueDate:     "2026-03-01",
		CreatorID:   a.ID,
		AssigneeID:  a.ID,
	}
	require.NoError(t, s.CreateTask(ctx, tk))
	assert.False(t, tk.CreatedAt.IsZero())

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, task.StatusToDo, got.Status)
	assert.Equal(t, task.PriorityAlta, got.Priority)
	assert.Equal(t, "2026-03-01", got.DueDate)
	assert.Equal(t, a.ID, got.CreatorID)

	view, err := s.GetTaskView(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", view.AssigneeName)
	assert.Nil(t, view.LastComment)
	assert.Nil(t, view.LastCommentUser)

	exists, err := s.TaskExists(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.GetTask(ctx, tk.ID+100)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = s.GetTaskView(ctx, tk.ID+100)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testTasksList(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	b := mustUser(t, s, "Luca", "Verdi")
	c := mustUser(t, s, "Sara", "Neri")

	first := mustTask(t, s, "first", a.ID, a.ID)
	time.Sleep(10 * time.Millisecond)
	second := mustTask(t, s, "second", b.ID, a.ID)
	time.Sleep(10 * time.Millisecond)
	mustTask(t, s, "foreign", b.ID, c.ID)

	tasks, err := s.ListTasksFor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
	assert.Equal(t, "Mario Rossi", tasks[0].AssigneeName)

	tasks, err = s.ListTasksFor(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "foreign", tasks[0].Title)

	tasks, err = s.ListTasksFor(ctx, c.ID+100)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func testTasksUpdate(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	tk := mustTask(t, s, "before", a.ID, a.ID)
	createdAt := tk.CreatedAt

	err := s.WithTx(ctx, func(tx repo.Repository) error {
		locked, err := tx.LockTask(ctx, tk.ID)
		if err != nil {
			return err
		}
		locked.Title = "after"
		locked.Status = task.StatusDone
		locked.Description = ""
		return tx.UpdateTask(ctx, locked)
	})
	require.NoError(t, err)

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Equal(t, a.ID, got.CreatorID)
	assert.WithinDuration(t, createdAt, got.CreatedAt, time.Second)

	err = s.UpdateTask(ctx, &task.Task{ID: tk.ID + 100, Title: "x"})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func testTasksDelete(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	b := mustUser(t, s, "Luca", "Verdi")
	tk := mustTask(t, s, "to delete", a.ID, b.ID)
	mustComment(t, s, tk.ID, b.ID, "bye")

	deleted, err := s.DeleteTaskByCreator(ctx, tk.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteTaskByCreator(ctx, tk.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := s.TaskExists(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	comments, err := s.ListComments(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func testTaskViewLastComment(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	b := mustUser(t, s, "Luca", "Verdi")
	tk := mustTask(t, s, "talk", a.ID, b.ID)
	mustComment(t, s, tk.ID, a.ID, "first")
	mustComment(t, s, tk.ID, b.ID, "latest")

	view, err := s.GetTaskView(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, view.LastComment)
	require.NotNil(t, view.LastCommentUser)
	assert.Equal(t, "latest", *view.LastComment)
	assert.Equal(t, "Luca Verdi", *view.LastCommentUser)
	assert.Equal(t, "Luca Verdi", view.AssigneeName)
}

func testCommentsOrder(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	b := mustUser(t, s, "Luca", "Verdi")
	tk := mustTask(t, s, "talk", a.ID, b.ID)
	for i := 0; i < 6; i++ {
		author := a.ID
		if i%2 == 1 {
			author = b.ID
		}
		mustComment(t, s, tk.ID, author, fmt.Sprintf("c%d", i))
	}

	comments, err := s.ListComments(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, comments, 6)
	for i, c := range comments {
		assert.Equal(t, fmt.Sprintf("c%d", i), c.Content)
		if i > 0 {
			assert.False(t, c.CreatedAt.Before(comments[i-1].CreatedAt))
		}
	}
	assert.Equal(t, "Mario Rossi", comments[0].AuthorName)
	assert.Equal(t, "Luca Verdi", comments[1].AuthorName)
}

func testCommentsBulk(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	t1 := mustTask(t, s, "one", a.ID, a.ID)
	t2 := mustTask(t, s, "two", a.ID, a.ID)
	t3 := mustTask(t, s, "three", a.ID, a.ID)
	mustComment(t, s, t1.ID, a.ID, "1a")
	mustComment(t, s, t2.ID, a.ID, "2a")
	mustComment(t, s, t1.ID, a.ID, "1b")
	mustComment(t, s, t3.ID, a.ID, "3a")

	grouped, err := s.ListCommentsForTasks(ctx, []int64{t1.ID, t2.ID})
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	require.Len(t, grouped[t1.ID], 2)
	assert.Equal(t, "1a", grouped[t1.ID][0].Content)
	assert.Equal(t, "1b", grouped[t1.ID][1].Content)
	require.Len(t, grouped[t2.ID], 1)
	assert.Equal(t, "Mario Rossi", grouped[t2.ID][0].AuthorName)

	grouped, err = s.ListCommentsForTasks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, grouped)
}

func testTxRollback(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	tk := mustTask(t, s, "keep", a.ID, a.ID)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repo.Repository) error {
		locked, err := tx.LockTask(ctx, tk.ID)
		if err != nil {
			return err
		}
		locked.Title = "lost"
		if err := tx.UpdateTask(ctx, locked); err != nil {
			return err
		}
		if err := tx.AddComment(ctx, &comment.Comment{TaskID: tk.ID, AuthorID: a.ID, Content: "lost"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title)

	comments, err := s.ListComments(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func testConcurrentComments(t *testing.T, s repo.Storage) {
	ctx := context.Background()
	a := mustUser(t, s, "Mario", "Rossi")
	b := mustUser(t, s, "Luca", "Verdi")
	tk := mustTask(t, s, "busy", a.ID, b.ID)

	workers, perWorker := 4, 5
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			author := a.ID
			if workerID%2 == 1 {
				author = b.ID
			}
			for j := 0; j < perWorker; j++ {
				err := s.WithTx(ctx, func(tx repo.Repository) error {
					if _, err := tx.LockTask(ctx, tk.ID); err != nil {
						return err
					}
					return tx.AddComment(ctx, &comment.Comment{
						TaskID:   tk.ID,
						AuthorID: author,
						Content:  fmt.Sprintf("w%d-%d", workerID, j),
					})
				})
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	comments, err := s.ListComments(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, comments, workers*perWorker)
	for i := 1; i < len(comments); i++ {
		assert.False(t, comments[i].CreatedAt.Before(comments[i-1].CreatedAt))
	}
}
