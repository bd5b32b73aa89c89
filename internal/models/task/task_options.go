package task

import "strings"

// Field - значение частичного обновления: Set различает "поле не передано"
// и "передано пустое значение".
type Field struct {
	Value string
	Set   bool
}

func Some(value string) Field {
	return Field{Value: value, Set: true}
}

type Update struct {
	Title       Field
	Description Field
	Status      Field
	Priority    Field
	DueDate     Field
}

type TaskOption func(*Update)

func WithTitle(title string) TaskOption {
	return func(u *Update) {
		u.Title = Some(title)
	}
}

func WithDescription(description string) TaskOption {
	return func(u *Update) {
		u.Description = Some(description)
	}
}

func WithStatus(status string) TaskOption {
	return func(u *Update) {
		u.Status = Some(status)
	}
}

func WithPriority(priority string) TaskOption {
	return func(u *Update) {
		u.Priority = Some(priority)
	}
}

func WithDueDate(dueDate string) TaskOption {
	return func(u *Update) {
		u.DueDate = Some(dueDate)
	}
}

func NewUpdate(options ...TaskOption) Update {
	var u Update
	for _, opt := range options {
		if opt != nil {
			opt(&u)
		}
	}
	return u
}

// TouchesDetails - переданы ли поля, которые может менять только создатель.
// Учитывается само наличие поля, даже пустого.
func (u Update) TouchesDetails() bool {
	return u.Title.Set || u.Description.Set || u.Priority.Set || u.DueDate.Set
}

func (u Update) IsEmpty() bool {
	return !u.TouchesDetails() && !u.Status.Set
}

// ApplyTo применяет обновление целиком или не применяет ничего.
// Пустые title/priority/status означают "без изменений", а description и
// due_date можно явно очистить пустой строкой.
func (u Update) ApplyTo(t *Task) error {
	next := *t

	if status := strings.TrimSpace(u.Status.Value); u.Status.Set && status != "" {
		parsed, err := ParseStatus(status)
		if err != nil {
			return err
		}
		next.Status = parsed
	}
	if title := strings.TrimSpace(u.Title.Value); u.Title.Set && title != "" {
		next.Title = title
	}
	if u.Description.Set {
		next.Description = strings.TrimSpace(u.Description.Value)
	}
	if priority := strings.TrimSpace(u.Priority.Value); u.Priority.Set && priority != "" {
		parsed, err := ParsePriority(priority)
		if err != nil {
			return err
		}
		next.Priority = parsed
	}
	// срок при обновлении сохраняется как прислали, обрезается только при создании
	if u.DueDate.Set {
		next.DueDate = u.DueDate.Value
	}

	next.ID = t.ID
	next.CreatorID = t.CreatorID
	next.CreatedAt = t.CreatedAt
	*t = next
	return nil
}
