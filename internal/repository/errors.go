package repository

import "errors"

var ErrNotFound = errors.New("запись не найдена")

// ErrConflict - нарушено ограничение уникальности
var ErrConflict = errors.New("запись уже существует")
