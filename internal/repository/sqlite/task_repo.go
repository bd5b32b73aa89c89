package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/task"
	repo "taskPlanner/internal/repository"
)

const taskColumns = `id, title, description, status, priority, due_date, created_at, creator_id, assignee_id`

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

func scanTask(row scanner) (*task.Task, error) {
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

func scanView(row scanner) (*task.View, error) {
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
	createdAt := r.now()

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO tasks
			(title, description, status, priority, due_date, creator_id, assignee_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Status,
		taskToCreate.Priority,
		taskToCreate.DueDate,
		taskToCreate.CreatorID,
		taskToCreate.AssigneeID,
		createdAt,
	).Scan(&taskToCreate.ID)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", err)
	}
	taskToCreate.CreatedAt = createdAt

	warnIfSlow("create_task", start, 50*time.Millisecond)
	return nil
}

func (r *queries) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := scanTask(r.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// LockTask: транзакции открываются через BEGIN IMMEDIATE и уже держат
// блокировку записи, отдельный FOR UPDATE в SQLite не нужен
func (r *queries) LockTask(ctx context.Context, id int64) (*task.Task, error) {
	return r.GetTask(ctx, id)
}

func (r *queries) TaskExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		logger.Error("Repository: Не удалось проверить задачу", err)
		return false, fmt.Errorf("проверка задачи: %w", err)
	}
	return exists, nil
}

func (r *queries) GetTaskView(ctx context.Context, id int64) (*task.View, error) {
	v, err := scanView(r.q.QueryRowContext(ctx, viewQuery+` WHERE t.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return v, nil
}

func (r *queries) ListTasksFor(ctx context.Context, userID int64) ([]*task.View, error) {
	start := time.Now()

	rows, err := r.q.QueryContext(ctx, viewQuery+`
			WHERE t.assignee_id = ? OR t.creator_id = ?
			ORDER BY t.created_at DESC, t.id DESC`, userID, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
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
	res, err := r.q.ExecContext(ctx,
		`UPDATE tasks
			SET title = ?,
				description = ?,
				status = ?,
				priority = ?,
				due_date = ?,
				assignee_id = ?
			WHERE id = ?`,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Status,
		taskToUpdate.Priority,
		taskToUpdate.DueDate,
		taskToUpdate.AssigneeID,
		taskToUpdate.ID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *queries) DeleteTaskByCreator(ctx context.Context, id, creatorID int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND creator_id = ?`, id, creatorID)
	if err != nil {
		logger.Error("Repository: Удаление задачи", err)
		return false, fmt.Errorf("удаление задачи: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("удаление задачи: %w", err)
	}
	return affected > 0, nil
}
