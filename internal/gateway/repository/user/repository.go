package user

import (
	"context"
	"errors"

	"fastform/internal/gateway/entity"
)

// Store persists user accounts.
type Store interface {
	Create(ctx context.Context, u entity.User) (entity.User, error)
	Get(ctx context.Context, id entity.UserID) (entity.User, error)
	UpdateEmail(ctx context.Context, id entity.UserID, email string) (entity.User, error)
	Delete(ctx context.Context, id entity.UserID) error
}

var (
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when the id or the email is already taken.
	ErrConflict = errors.New("user already exists")
)
