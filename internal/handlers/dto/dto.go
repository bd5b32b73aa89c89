package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"taskPlanner/internal/models/comment"
	"taskPlanner/internal/models/task"
	"taskPlanner/internal/models/user"
)

// TimeLayout - формат дат в ответах ("2026-01-02 15:04:05")
const TimeLayout = "2006-01-02 15:04:05"

type UnlockRequest struct {
	Password string `json:"password"`
}

type SignupRequest struct {
	FullName        string `json:"fullName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type SigninRequest struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

type DeleteUserRequest struct {
	Password string `json:"password"`
}

// FlexibleID принимает id и числом, и строкой: {"assignTo": 3} и {"assignTo": "3"}
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     string     `json:"dueDate"`
	AssignTo    FlexibleID `json:"assignTo"`
}

// UpdateTaskRequest: nil - поле не передано, пустая строка - передано пустым
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

func (r UpdateTaskRequest) ToUpdate() task.Update {
	var opts []task.TaskOption
	if r.Title != nil {
		opts = append(opts, task.WithTitle(*r.Title))
	}
	if r.Description != nil {
		opts = append(opts, task.WithDescription(*r.Description))
	}
	if r.Status != nil {
		opts = append(opts, task.WithStatus(*r.Status))
	}
	if r.Priority != nil {
		opts = append(opts, task.WithPriority(*r.Priority))
	}
	if r.DueDate != nil {
		opts = append(opts, task.WithDueDate(*r.DueDate))
	}
	return task.NewUpdate(opts...)
}

type CommentRequest struct {
	Content string `json:"content"`
}

type TaskResponse struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	DueDate        string  `json:"due_date"`
	CreatedAt      string  `json:"created_at"`
	UserID         int64   `json:"user_id"`
	CreatedBy      int64   `json:"created_by"`
	AssignedToName *string `json:"assigned_to_name"`
}

// TaskDetailsResponse - задача после обновления, с последним комментарием
type TaskDetailsResponse struct {
	TaskResponse
	LastComment     *string `json:"last_comment"`
	LastCommentUser *string `json:"last_comment_user"`
}

type TaskWithCommentsResponse struct {
	TaskResponse
	Comments []CommentResponse `json:"comments"`
}

type CommentResponse struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UserName  string `json:"user_name"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user,omitempty"`
	UserID        int64  `json:"user_id,omitempty"`
}

func formatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func FromTask(v *task.View) TaskResponse {
	return TaskResponse{
		ID:             v.ID,
		Title:          v.Title,
		Description:    v.Description,
		Status:         string(v.Status),
		Priority:       string(v.Priority),
		DueDate:        v.DueDate,
		CreatedAt:      formatTime(v.CreatedAt),
		UserID:         v.AssigneeID,
		CreatedBy:      v.CreatorID,
		AssignedToName: optional(v.AssigneeName),
	}
}

func FromTaskDetails(v *task.View) TaskDetailsResponse {
	return TaskDetailsResponse{
		TaskResponse:    FromTask(v),
		LastComment:     v.LastComment,
		LastCommentUser: v.LastCommentUser,
	}
}

func FromTaskList(tasks []*task.WithComments) []TaskWithCommentsResponse {
	result := make([]TaskWithCommentsResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskWithCommentsResponse{
			TaskResponse: FromTask(&t.View),
			Comments:     FromCommentList(t.Comments),
		}
	}
	return result
}

func FromComment(c *comment.View) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Content:   c.Content,
		CreatedAt: formatTime(c.CreatedAt),
		UserName:  c.AuthorName,
	}
}

func FromCommentList(comments []*comment.View) []CommentResponse {
	result := make([]CommentResponse, len(comments))
	for i, c := range comments {
		result[i] = FromComment(c)
	}
	return result
}

func FromUsers(users []user.Summary) []user.Summary {
	if users == nil {
		return []user.Summary{}
	}
	return users
}

// ParseID разбирает положительный id из пути
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
