package user

import (
	"strings"
	"time"
)

// LastNamePlaceholder подставляется, когда при регистрации указано одно слово
const LastNamePlaceholder = "-"

type User struct {
	ID           int64     `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Summary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (u *User) DisplayName() string {
	return DisplayName(u.FirstName, u.LastName)
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.DisplayName()}
}

func DisplayName(firstName, lastName string) string {
	return firstName + " " + lastName
}

// SplitFullName делит "Имя Фамилия" по последнему пробелу: всё до него - имя,
// остаток - фамилия. Пустые части заменяются на LastNamePlaceholder.
func SplitFullName(fullName string) (string, string) {
	fullName = strings.TrimSpace(fullName)
	first, last := fullName, LastNamePlaceholder
	if idx := strings.LastIndex(fullName, " "); idx >= 0 {
		first = strings.TrimSpace(fullName[:idx])
		last = strings.TrimSpace(fullName[idx+1:])
	}
	if first == "" {
		first = LastNamePlaceholder
	}
	if last == "" {
		last = LastNamePlaceholder
	}
	return first, last
}
