package comment

import "time"

type Comment struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	AuthorID  int64     `json:"user_id" db:"author_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// View - комментарий с именем автора ("Имя Фамилия")
type View struct {
	Comment
	AuthorName string `json:"user_name"`
}
