package service

import (
	"errors"
	"fmt"
)

// Коды бизнес-ошибок. Транспортный слой сам решает, в какой статус их превратить.
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotFound           = "NOT_FOUND"
	CodePermissionDenied   = "PERMISSION_DENIED"
)

type Resource string

const (
	ResourceTask Resource = "задача"
	ResourceUser Resource = "пользователь"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource Resource, id int64) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %d не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewInvalidArgument(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewConflict(message string) *BusinessError {
	return NewBusinessError(CodeConflict, message)
}

// NewInvalidCredentials намеренно не говорит, что именно не совпало
func NewInvalidCredentials() *BusinessError {
	return NewBusinessError(CodeInvalidCredentials, "Неверные учётные данные")
}

func NewPermissionDenied(message string, err error) *BusinessError {
	busErr := NewBusinessError(CodePermissionDenied, message)
	busErr.Err = err
	return busErr
}

func AsBusinessError(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}

func HasCode(err error, code string) bool {
	busErr, ok := AsBusinessError(err)
	return ok && busErr.Code == code
}
