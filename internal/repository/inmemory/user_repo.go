package inmemory

import (
	"context"
	"sort"

	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"
)

func (r *txRepo) CreateUser(ctx context.Context, userToCreate *user.User) error {
	for _, existed := range r.st.users {
		if existed.DisplayName() == userToCreate.DisplayName() {
			return repo.ErrConflict
		}
	}
	r.st.lastUserID++
	userToCreate.ID = r.st.lastUserID
	userToCreate.CreatedAt = r.now()
	r.st.users[userToCreate.ID] = *userToCreate
	return nil
}

func (r *txRepo) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *txRepo) GetUserByName(ctx context.Context, firstName, lastName string) (*user.User, error) {
	for _, u := range r.st.users {
		if u.FirstName == firstName && u.LastName == lastName {
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *txRepo) GetUserByDisplayName(ctx context.Context, displayName string) (*user.User, error) {
	for _, u := range r.st.users {
		if u.DisplayName() == displayName {
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *txRepo) ListUsers(ctx context.Context) ([]*user.User, error) {
	res := make([]*user.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		u := u
		res = append(res, &u)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].FirstName != res[j].FirstName {
			return res[i].FirstName < res[j].FirstName
		}
		return res[i].LastName < res[j].LastName
	})
	return res, nil
}

// как и внешний ключ в SQL-схемах, удаляет комментарии пользователя;
// задачи остаются со ссылкой на удалённый id
func (r *txRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := r.st.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.st.users, id)
	for commentID, c := range r.st.comments {
		if c.AuthorID == id {
			delete(r.st.comments, commentID)
		}
	}
	return nil
}
