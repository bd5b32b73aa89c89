package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/comment"
	repo "taskPlanner/internal/repository"
)

const commentViewQuery = `SELECT
				c.id, c.task_id, c.author_id, c.content, c.created_at,
				COALESCE(u.first_name || ' ' || u.last_name, '')
			FROM comments c
			LEFT JOIN users u ON u.id = c.author_id`

func scanComment(row scanner) (*comment.View, error) {
	v := &comment.View{}
	err := row.Scan(&v.ID, &v.TaskID, &v.AuthorID, &v.Content, &v.CreatedAt, &v.AuthorName)
	return v, err
}

func (r *queries) AddComment(ctx context.Context, c *comment.Comment) error {
	start := time.Now()
	createdAt := r.now()

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO comments (task_id, author_id, content, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
		c.TaskID, c.AuthorID, c.Content, createdAt,
	).Scan(&c.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось добавить комментарий", err)
		return fmt.Errorf("добавление комментария: %w", err)
	}
	c.CreatedAt = createdAt

	warnIfSlow("add_comment", start, 50*time.Millisecond)
	return nil
}

func (r *queries) queryComments(ctx context.Context, query string, args ...any) ([]*comment.View, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить комментарии", err)
		return nil, fmt.Errorf("получение комментариев: %w", err)
	}
	defer rows.Close()

	comments := []*comment.View{}
	for rows.Next() {
		v, err := scanComment(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования комментария", err)
			return nil, fmt.Errorf("сканирование комментария: %w", err)
		}
		comments = append(comments, v)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return comments, nil
}

func (r *queries) ListComments(ctx context.Context, taskID int64) ([]*comment.View, error) {
	return r.queryComments(ctx, commentViewQuery+`
			WHERE c.task_id = ?
			ORDER BY c.created_at ASC, c.id ASC`, taskID)
}

// ListCommentsForTasks передаёт список id одним JSON-массивом через json_each
func (r *queries) ListCommentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]*comment.View, error) {
	grouped := make(map[int64][]*comment.View)
	if len(taskIDs) == 0 {
		return grouped, nil
	}
	start := time.Now()

	ids, err := json.Marshal(taskIDs)
	if err != nil {
		return nil, fmt.Errorf("кодирование id задач: %w", err)
	}

	comments, err := r.queryComments(ctx, commentViewQuery+`
			WHERE c.task_id IN (SELECT value FROM json_each(?))
			ORDER BY c.task_id, c.created_at ASC, c.id ASC`, string(ids))
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		grouped[c.TaskID] = append(grouped[c.TaskID], c)
	}

	warnIfSlow("list_comments_bulk", start, 50*time.Millisecond+time.Millisecond*5*time.Duration(len(taskIDs)))
	return grouped, nil
}
