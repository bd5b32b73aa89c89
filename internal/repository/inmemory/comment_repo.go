package inmemory

import (
	"context"
	"sort"

	"taskPlanner/internal/models/comment"
	repo "taskPlanner/internal/repository"
)

func (r *txRepo) AddComment(ctx context.Context, c *comment.Comment) error {
	if _, ok := r.st.tasks[c.TaskID]; !ok {
		return repo.ErrNotFound
	}
	r.st.lastCommentID++
	c.ID = r.st.lastCommentID
	c.CreatedAt = r.now()
	r.st.comments[c.ID] = *c
	return nil
}

func (r *txRepo) commentView(c comment.Comment) *comment.View {
	v := &comment.View{Comment: c}
	if author, ok := r.st.users[c.AuthorID]; ok {
		v.AuthorName = author.DisplayName()
	}
	return v
}

func sortComments(views []*comment.View) {
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})
}

func (r *txRepo) ListComments(ctx context.Context, taskID int64) ([]*comment.View, error) {
	res := []*comment.View{}
	for _, c := range r.st.comments {
		if c.TaskID == taskID {
			res = append(res, r.commentView(c))
		}
	}
	sortComments(res)
	return res, nil
}

func (r *txRepo) ListCommentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]*comment.View, error) {
	wanted := make(map[int64]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = struct{}{}
	}
	res := make(map[int64][]*comment.View)
	for _, c := range r.st.comments {
		if _, ok := wanted[c.TaskID]; ok {
			res[c.TaskID] = append(res[c.TaskID], r.commentView(c))
		}
	}
	for _, views := range res {
		sortComments(views)
	}
	return res, nil
}

var _ repo.Repository = (*txRepo)(nil)
