package inmemory

import (
	"context"
	"sort"
	"time"

	"taskPlanner/internal/models/task"
	repo "taskPlanner/internal/repository"
)

// txRepo работает с состоянием без блокировок: вызывающий уже держит мьютекс
type txRepo struct {
	st  *state
	now func() time.Time
}

func (r *txRepo) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	r.st.lastTaskID++
	taskToCreate.ID = r.st.lastTaskID
	taskToCreate.CreatedAt = r.now()
	r.st.tasks[taskToCreate.ID] = *taskToCreate
	return nil
}

func (r *txRepo) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	taskToGet, ok := r.st.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &taskToGet, nil
}

func (r *txRepo) LockTask(ctx context.Context, id int64) (*task.Task, error) {
	return r.GetTask(ctx, id)
}

func (r *txRepo) TaskExists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.st.tasks[id]
	return ok, nil
}

func (r *txRepo) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	existed, ok := r.st.tasks[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}
	existed.Title = taskToUpdate.Title
	existed.Description = taskToUpdate.Description
	existed.Status = taskToUpdate.Status
	existed.Priority = taskToUpdate.Priority
	existed.DueDate = taskToUpdate.DueDate
	existed.AssigneeID = taskToUpdate.AssigneeID
	r.st.tasks[existed.ID] = existed
	return nil
}

// удаление вместе с комментариями задачи
func (r *txRepo) DeleteTaskByCreator(ctx context.Context, id, creatorID int64) (bool, error) {
	existed, ok := r.st.tasks[id]
	if !ok || existed.CreatorID != creatorID {
		return false, nil
	}
	delete(r.st.tasks, id)
	for commentID, c := range r.st.comments {
		if c.TaskID == id {
			delete(r.st.comments, commentID)
		}
	}
	return true, nil
}

func (r *txRepo) view(t task.Task) *task.View {
	v := &task.View{Task: t}
	if assignee, ok := r.st.users[t.AssigneeID]; ok {
		v.AssigneeName = assignee.DisplayName()
	}
	return v
}

func (r *txRepo) GetTaskView(ctx context.Context, id int64) (*task.View, error) {
	t, ok := r.st.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	v := r.view(t)

	var lastID int64
	for commentID, c := range r.st.comments {
		if c.TaskID == id && commentID > lastID {
			lastID = commentID
		}
	}
	if lastID != 0 {
		last := r.st.comments[lastID]
		content := last.Content
		v.LastComment = &content
		if author, ok := r.st.users[last.AuthorID]; ok {
			name := author.DisplayName()
			v.LastCommentUser = &name
		}
	}
	return v, nil
}

func (r *txRepo) ListTasksFor(ctx context.Context, userID int64) ([]*task.View, error) {
	res := []*task.View{}
	for _, t := range r.st.tasks {
		if t.CreatorID != userID && t.AssigneeID != userID {
			continue
		}
		res = append(res, r.view(t))
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}
