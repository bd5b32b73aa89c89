package task

import (
	"errors"
	"strings"
	"time"

	"taskPlanner/internal/models/comment"
)

type Task struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      Status    `json:"status" db:"status"`
	Priority    Priority  `json:"priority" db:"priority"`
	DueDate     string    `json:"due_date" db:"due_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	CreatorID   int64     `json:"created_by" db:"creator_id"`
	AssigneeID  int64     `json:"user_id" db:"assignee_id"`
}

// View - задача вместе с именем исполнителя и последним комментарием
type View struct {
	Task
	AssigneeName    string
	LastComment     *string
	LastCommentUser *string
}

type WithComments struct {
	View
	Comments []*comment.View
}

type Status string
type Priority string

const StatusToDo Status = "To Do"
const StatusInProgress Status = "In Progress"
const StatusDone Status = "Done"

const PriorityLow Priority = "Low"
const PriorityMedium Priority = "Medium"
const PriorityHigh Priority = "High"

// значения из исходных данных приложения
const PriorityBassa Priority = "Bassa"
const PriorityMedia Priority = "Media"
const PriorityAlta Priority = "Alta"

var ErrInvalidStatus = errors.New("недопустимый статус")
var ErrInvalidPriority = errors.New("недопустимый приоритет")

var statusAliases = map[string]Status{
	"todo":       StatusToDo,
	"inprogress": StatusInProgress,
	"done":       StatusDone,
}

// ParseStatus приводит ввод к каноническому статусу: регистр, пробелы,
// дефисы и подчёркивания не учитываются ("ToDo", "todo", "in_progress").
func ParseStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	status, ok := statusAliases[key]
	if !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.TrimSpace(raw))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh,
		PriorityBassa, PriorityMedia, PriorityAlta:
		return p, nil
	}
	return "", ErrInvalidPriority
}

func (t *Task) IsCreator(userID int64) bool {
	return t.CreatorID == userID
}

func (t *Task) IsAssignee(userID int64) bool {
	return t.AssigneeID == userID
}
