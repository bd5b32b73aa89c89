package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/task"
	repo "taskPlanner/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const taskColumns = `id, title, description, status, priority, due_date, created_at, creator_id, assignee_id`

// viewQuery дополняет задачу именем исполнителя и последним (по id) комментарием
const viewQuery = `SELECT
				t.id, t.title, t.description, t.status, t.priority, t.due_date,
				t.created_at, t.creator_id, t.assignee_id,
				COALESCE(a.first_name || ' ' || a.last_name, ''),
				lc.content,
				lu.first_name || ' ' || lu.last_name
			FROM tasks t
			LEFT JOIN users a ON a.id = t.assignee_id
			LEFT JOIN comments lc ON lc.id = (
				SELECT MAX(c.id) FROM comments c WHERE c.task_id = t.id
			)
			LEFT JOIN users lu ON lu.id = lc.author_id`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.CreatedAt,
		&t.CreatorID,
		&t.AssigneeID,
	)
	return t, err
}

func scanView(row pgx.Row) (*task.View, error) {
	v := &task.View{}
	err := row.Scan(
		&v.ID,
		&v.Title,
		&v.Description,
		&v.Status,
		&v.Priority,
		&v.DueDate,
		&v.CreatedAt,
		&v.CreatorID,
		&v.AssigneeID,
		&v.AssigneeName,
		&v.LastComment,
		&v.LastCommentUser,
	)
	return v, err
}

func (r *queries) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(title, description, status, priority, due_date, creator_id, assignee_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Status,
		taskToCreate.Priority,
		taskToCreate.DueDate,
		taskToCreate.CreatorID,
		taskToCreate.AssigneeID,
		r.now(),
	).Scan(&taskToCreate.ID, &taskToCreate.CreatedAt)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnIfSlow("create_task", start, 50*time.Millisecond)
	return nil
}

func (r *queries) getTask(ctx context.Context, op, query string, id int64) (*task.Task, error) {
	start := time.Now()

	t, err := scanTask(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow(op, start, 100*time.Millisecond)
	return t, nil
}

func (r *queries) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	return r.getTask(ctx, "get_task", `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

// LockTask блокирует строку до конца транзакции: параллельные изменения
// одной задачи выполняются по очереди
func (r *queries) LockTask(ctx context.Context, id int64) (*task.Task, error) {
	return r.getTask(ctx, "lock_task", `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

func (r *queries) TaskExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		logger.Error("Repository: Не удалось проверить задачу", err)
		return false, fmt.Errorf("проверка задачи: %w", err)
	}
	return exists, nil
}

func (r *queries) GetTaskView(ctx context.Context, id int64) (*task.View, error) {
	start := time.Now()

	v, err := scanView(r.q.QueryRow(ctx, viewQuery+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow("get_task_view", start, 100*time.Millisecond)
	return v, nil
}

func (r *queries) ListTasksFor(ctx context.Context, userID int64) ([]*task.View, error) {
	start := time.Now()

	query := viewQuery + `
			WHERE t.assignee_id = $1 OR t.creator_id = $1
			ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, v)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnIfSlow("list_tasks", start, 50*time.Millisecond+time.Millisecond*10*time.Duration(len(tasks)))
	return tasks, nil
}

func (r *queries) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				priority = $4,
				due_date = $5,
				assignee_id = $6
			WHERE id = $7`

	tag, err := r.q.Exec(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Status,
		taskToUpdate.Priority,
		taskToUpdate.DueDate,
		taskToUpdate.AssigneeID,
		taskToUpdate.ID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow("update_task", start, 100*time.Millisecond)
	return nil
}

// комментарии задачи удаляются каскадом
func (r *queries) DeleteTaskByCreator(ctx context.Context, id, creatorID int64) (bool, error) {
	start := time.Now()

	tag, err := r.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND creator_id = $2`, id, creatorID)
	if err != nil {
		logger.Error("Repository: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return false, fmt.Errorf("удаление задачи: %w", err)
	}

	warnIfSlow("delete_task", start, 100*time.Millisecond)
	return tag.RowsAffected() > 0, nil
}
