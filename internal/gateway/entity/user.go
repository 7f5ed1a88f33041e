package entity

import (
	"strings"
	"time"
)

// UserID identifies a registered user.
type UserID string

// User is a registered account. Email is unique across users.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func NormalizeUserID(raw string) UserID {
	return UserID(strings.TrimSpace(raw))
}

func (id UserID) String() string {
	return strings.TrimSpace(string(id))
}

func (id UserID) IsZero() bool {
	return id.String() == ""
}

// NormalizeEmail lowercases and trims an address for uniqueness checks.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
