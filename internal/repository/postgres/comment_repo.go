package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/comment"
	repo "taskPlanner/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const foreignKeyViolation = "23503"

const commentViewQuery = `SELECT
				c.id, c.task_id, c.author_id, c.content, c.created_at,
				COALESCE(u.first_name || ' ' || u.last_name, '')
			FROM comments c
			LEFT JOIN users u ON u.id = c.author_id`

func scanComment(row pgx.Row) (*comment.View, error) {
	v := &comment.View{}
	err := row.Scan(&v.ID, &v.TaskID, &v.AuthorID, &v.Content, &v.CreatedAt, &v.AuthorName)
	return v, err
}

func (r *queries) AddComment(ctx context.Context, c *comment.Comment) error {
	start := time.Now()

	query := `INSERT INTO comments (task_id, author_id, content, created_at)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query, c.TaskID, c.AuthorID, c.Content, r.now()).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось добавить комментарий", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление комментария: %w", err)
	}

	warnIfSlow("add_comment", start, 50*time.Millisecond)
	return nil
}

func (r *queries) queryComments(ctx context.Context, query string, args ...any) ([]*comment.View, error) {
	rows, err := r.q.Query(ctx, query, args...)
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
	start := time.Now()

	comments, err := r.queryComments(ctx, commentViewQuery+`
			WHERE c.task_id = $1
			ORDER BY c.created_at ASC, c.id ASC`, taskID)
	if err != nil {
		return nil, err
	}

	warnIfSlow("list_comments", start, 100*time.Millisecond)
	return comments, nil
}

// ListCommentsForTasks читает комментарии всех задач одним запросом
func (r *queries) ListCommentsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]*comment.View, error) {
	grouped := make(map[int64][]*comment.View)
	if len(taskIDs) == 0 {
		return grouped, nil
	}
	start := time.Now()

	comments, err := r.queryComments(ctx, commentViewQuery+`
			WHERE c.task_id = ANY($1)
			ORDER BY c.task_id, c.created_at ASC, c.id ASC`, taskIDs)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		grouped[c.TaskID] = append(grouped[c.TaskID], c)
	}

	warnIfSlow("list_comments_bulk", start, 50*time.Millisecond+time.Millisecond*5*time.Duration(len(taskIDs)))
	return grouped, nil
}
