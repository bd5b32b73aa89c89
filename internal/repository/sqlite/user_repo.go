package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"
)

const userColumns = `id, first_name, last_name, password_hash, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (r *queries) CreateUser(ctx context.Context, userToCreate *user.User) error {
	start := time.Now()
	createdAt := r.now()

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, password_hash, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
		userToCreate.FirstName,
		userToCreate.LastName,
		userToCreate.PasswordHash,
		createdAt,
	).Scan(&userToCreate.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		logger.Error("Repository: Не удалось добавить пользователя", err)
		return fmt.Errorf("добавление пользователя: %w", err)
	}
	userToCreate.CreatedAt = createdAt

	warnIfSlow("create_user", start, 50*time.Millisecond)
	return nil
}

func (r *queries) getUser(ctx context.Context, where string, args ...any) (*user.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (r *queries) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *queries) GetUserByName(ctx context.Context, firstName, lastName string) (*user.User, error) {
	return r.getUser(ctx, `first_name = ? AND last_name = ?`, firstName, lastName)
}

func (r *queries) GetUserByDisplayName(ctx context.Context, displayName string) (*user.User, error) {
	return r.getUser(ctx, `first_name || ' ' || last_name = ?`, displayName)
}

func (r *queries) ListUsers(ctx context.Context) ([]*user.User, error) {
	start := time.Now()

	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY first_name, last_name`)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err)
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования пользователя", err)
			return nil, fmt.Errorf("сканирование пользователя: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow("list_users", start, 100*time.Millisecond)
	return users, nil
}

func (r *queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить пользователя", err)
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
