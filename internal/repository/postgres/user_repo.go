package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/user"
	repo "taskPlanner/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, first_name, last_name, password_hash, created_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (r *queries) CreateUser(ctx context.Context, userToCreate *user.User) error {
	start := time.Now()

	query := `INSERT INTO users (first_name, last_name, password_hash, created_at)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		userToCreate.FirstName,
		userToCreate.LastName,
		userToCreate.PasswordHash,
		r.now(),
	).Scan(&userToCreate.ID, &userToCreate.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		logger.Error("Repository: Не удалось добавить пользователя", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление пользователя: %w", err)
	}

	warnIfSlow("create_user", start, 50*time.Millisecond)
	return nil
}

func (r *queries) getUser(ctx context.Context, op, where string, args ...any) (*user.User, error) {
	start := time.Now()

	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	warnIfSlow(op, start, 100*time.Millisecond)
	return u, nil
}

func (r *queries) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getUser(ctx, "get_user", `id = $1`, id)
}

func (r *queries) GetUserByName(ctx context.Context, firstName, lastName string) (*user.User, error) {
	return r.getUser(ctx, "get_user_by_name", `first_name = $1 AND last_name = $2`, firstName, lastName)
}

func (r *queries) GetUserByDisplayName(ctx context.Context, displayName string) (*user.User, error) {
	return r.getUser(ctx, "get_user_by_display_name", `first_name || ' ' || last_name = $1`, displayName)
}

func (r *queries) ListUsers(ctx context.Context) ([]*user.User, error) {
	start := time.Now()

	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY first_name, last_name`)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err, zap.Duration("ms", time.Since(start)))
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

// комментарии пользователя удаляются внешним ключом, задачи остаются
func (r *queries) DeleteUser(ctx context.Context, id int64) error {
	start := time.Now()

	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить пользователя", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow("delete_user", start, 100*time.Millisecond)
	return nil
}
