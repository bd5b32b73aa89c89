// Package policy решает, может ли пользователь выполнить действие над задачей.
// Права есть только у создателя и исполнителя; функции пакета не имеют
// побочных эффектов и не обращаются к хранилищу.
package policy

import (
	"errors"
	"fmt"

	"taskPlanner/internal/models/task"
)

type Operation int

const (
	View Operation = iota
	UpdateDetails
	UpdateStatus
	Delete
	Comment
)

var ErrPermissionDenied = errors.New("недостаточно прав")

func (o Operation) String() string {
	switch o {
	case View:
		return "view"
	case UpdateDetails:
		return "update_details"
	case UpdateStatus:
		return "update_status"
	case Delete:
		return "delete"
	case Comment:
		return "comment"
	default:
		return "unknown"
	}
}

func Allowed(t *task.Task, actorID int64, op Operation) bool {
	if t == nil {
		return false
	}
	switch op {
	case View, UpdateStatus, Comment:
		return t.IsCreator(actorID) || t.IsAssignee(actorID)
	case UpdateDetails, Delete:
		return t.IsCreator(actorID)
	default:
		return false
	}
}

func Check(t *task.Task, actorID int64, op Operation) error {
	if Allowed(t, actorID, op) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
}

// ForUpdate - какое право нужно для частичного обновления: любое переданное
// поле кроме статуса требует прав создателя.
func ForUpdate(u task.Update) Operation {
	if u.TouchesDetails() {
		return UpdateDetails
	}
	return UpdateStatus
}

// Visible оставляет только задачи, которые пользователь может видеть.
func Visible[T any](items []T, actorID int64, taskOf func(T) *task.Task) []T {
	res := make([]T, 0, len(items))
	for _, item := range items {
		if Allowed(taskOf(item), actorID, View) {
			res = append(res, item)
		}
	}
	return res
}
