package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskPlanner/internal/logger"
	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/policy"
	repo "taskPlanner/internal/repository"

	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	store repo.Storage
}

func NewTaskService(store repo.Storage) *TaskService {
	return &TaskService{
		store: store,
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	// AssignTo - id исполнителя строкой; пусто или не число - сам создатель
	AssignTo string
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// создание возможно только в статусе "To Do", любой другой статус - ошибка ввода
func initialStatus(raw string) (task.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return task.StatusToDo, nil
	}
	status, err := task.ParseStatus(raw)
	if err != nil || status != task.StatusToDo {
		return "", NewInvalidArgument("status", "новая задача может быть только в статусе 'To Do'")
	}
	return status, nil
}

func parseAssignee(raw string, creatorID int64) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return creatorID, false
	}
	return id, true
}

func (s *TaskService) CreateTask(ctx context.Context, actorID int64, in CreateTaskInput) (*task.View, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewInvalidArgument("title", "название задачи обязательно")
	}
	status, err := initialStatus(in.Status)
	if err != nil {
		return nil, err
	}
	priority, err := task.ParsePriority(in.Priority)
	if err != nil {
		return nil, NewInvalidArgument("priority", "недопустимый приоритет")
	}
	assigneeID, explicit := parseAssignee(in.AssignTo, actorID)

	newTask := &task.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     strings.TrimSpace(in.DueDate),
		CreatorID:   actorID,
		AssigneeID:  assigneeID,
	}

	var created *task.View
	err = s.store.WithTx(ctx, func(tx repo.Repository) error {
		if explicit && assigneeID != actorID {
			if _, err := tx.GetUserByID(ctx, assigneeID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return NewInvalidArgument("assignTo", "исполнитель не найден")
				}
				return fmt.Errorf("получение исполнителя: %w", err)
			}
		}
		if err := tx.CreateTask(ctx, newTask); err != nil {
			return fmt.Errorf("создание задачи: %w", err)
		}
		view, err := tx.GetTaskView(ctx, newTask.ID)
		if err != nil {
			return fmt.Errorf("получение задачи: %w", err)
		}
		created = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Int64("creator_id", actorID),
		zap.Int64("assignee_id", assigneeID))
	return created, nil
}

// ListTasks - задачи, где пользователь создатель или исполнитель, новые первыми,
// у каждой комментарии по возрастанию времени
func (s *TaskService) ListTasks(ctx context.Context, actorID int64) ([]*task.WithComments, error) {
	views, err := s.store.ListTasksFor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	views = policy.Visible(views, actorID, func(v *task.View) *task.Task { return &v.Task })

	ids := make([]int64, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	grouped, err := s.store.ListCommentsForTasks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("получение комментариев: %w", err)
	}

	res := make([]*task.WithComments, 0, len(views))
	for _, v := range views {
		comments := grouped[v.ID]
		if comments == nil {
			comments = []*comment.View{}
		}
		res = append(res, &task.WithComments{View: *v, Comments: comments})
	}
	return res, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, actorID, taskID int64, update task.Update) (*task.View, error) {
	var updated *task.View
	err := s.store.WithTx(ctx, func(tx repo.Repository) error {
		current, err := tx.LockTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				logger.Info("Service: Задача не найдена", zap.Int64("target_id", taskID))
				return NewNotFound(ResourceTask, taskID)
			}
			return fmt.Errorf("получение задачи: %w", err)
		}

		if err := policy.Check(current, actorID, policy.View); err != nil {
			return NewPermissionDenied("Недостаточно прав", err)
		}
		if err := policy.Check(current, actorID, policy.ForUpdate(update)); err != nil {
			return NewPermissionDenied("Только создатель задачи может менять её детали", err)
		}

		if !update.IsEmpty() {
			next := *current
			if err := update.ApplyTo(&next); err != nil {
				switch {
				case errors.Is(err, task.ErrInvalidStatus):
					return NewInvalidArgument("status", "недопустимый статус")
				case errors.Is(err, task.ErrInvalidPriority):
					return NewInvalidArgument("priority", "недопустимый приоритет")
				}
				return err
			}
			if err := tx.UpdateTask(ctx, &next); err != nil {
				return fmt.Errorf("обновление задачи: %w", err)
			}
		}

		view, err := tx.GetTaskView(ctx, taskID)
		if err != nil {
			return fmt.Errorf("получение задачи: %w", err)
		}
		updated = view
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Задача обновлена",
		zap.Int64("task_id", taskID),
		zap.Int64("actor_id", actorID))
	return updated, nil
}

// DeleteTask удаляет задачу вместе с комментариями. Удаление ограничено
// создателем; если ничего не удалено, отдельная проверка существования
// отличает "нет такой задачи" от "нет прав".
func (s *TaskService) DeleteTask(ctx context.Context, actorID, taskID int64) error {
	err := s.store.WithTx(ctx, func(tx repo.Repository) error {
		deleted, err := tx.DeleteTaskByCreator(ctx, taskID, actorID)
		if err != nil {
			return fmt.Errorf("удаление задачи: %w", err)
		}
		if deleted {
			return nil
		}

		exists, err := tx.TaskExists(ctx, taskID)
		if err != nil {
			return fmt.Errorf("проверка задачи: %w", err)
		}
		if !exists {
			return NewNotFound(ResourceTask, taskID)
		}
		return NewPermissionDenied("Только создатель задачи может её удалить", policy.ErrPermissionDenied)
	})
	if err != nil {
		return err
	}

	logger.Info("Service: Задача удалена",
		zap.Int64("task_id", taskID),
		zap.Int64("actor_id", actorID))
	return nil
}

func (s *TaskService) AddComment(ctx context.Context, actorID, taskID int64, content string) (*comment.View, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewInvalidArgument("content", "комментарий не может быть пустым")
	}

	var added *comment.View
	err := s.store.WithTx(ctx, func(tx repo.Repository) error {
		current, err := tx.LockTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFound(ResourceTask, taskID)
			}
			return fmt.Errorf("получение задачи: %w", err)
		}
		if err := policy.Check(current, actorID, policy.Comment); err != nil {
			return NewPermissionDenied("Недостаточно прав", err)
		}

		author, err := tx.GetUserByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFound(ResourceUser, actorID)
			}
			return fmt.Errorf("получение автора: %w", err)
		}

		c := &comment.Comment{TaskID: taskID, AuthorID: actorID, Content: content}
		if err := tx.AddComment(ctx, c); err != nil {
			return fmt.Errorf("добавление комментария: %w", err)
		}
		added = &comment.View{Comment: *c, AuthorName: author.DisplayName()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Комментарий добавлен",
		zap.Int64("task_id", taskID),
		zap.Int64("comment_id", added.ID))
	return added, nil
}

func (s *TaskService) ListComments(ctx context.Context, actorID, taskID int64) ([]*comment.View, error) {
	current, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewNotFound(ResourceTask, taskID)
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	if err := policy.Check(current, actorID, policy.View); err != nil {
		return nil, NewPermissionDenied("Недостаточно прав", err)
	}

	comments, err := s.store.ListComments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение комментариев: %w", err)
	}
	return comments, nil
}
