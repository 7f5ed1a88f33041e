package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"fastform/internal/apperr"
	"fastform/internal/gateway/entity"
	userrepo "fastform/internal/gateway/repository/user"
)

// Service implements user account operations.
type Service struct {
	store userrepo.Store
}

func New(store userrepo.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, id entity.UserID, email string) (entity.User, error) {
	id = entity.NormalizeUserID(string(id))
	if id.IsZero() {
		return entity.User{}, apperr.MalformedInput("id is required")
	}
	email, err := checkEmail(email)
	if err != nil {
		return entity.User{}, err
	}
	u, err := s.store.Create(ctx, entity.User{ID: id, Email: email, CreatedAt: time.Now().UTC()})
	if err != nil {
		return entity.User{}, mapError(err, id)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id entity.UserID) (entity.User, error) {
	id = entity.NormalizeUserID(string(id))
	if id.IsZero() {
		return entity.User{}, apperr.MalformedInput("id is required")
	}
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return entity.User{}, mapError(err, id)
	}
	return u, nil
}

func (s *Service) Update(ctx context.Context, id entity.UserID, email string) (entity.User, error) {
	id = entity.NormalizeUserID(string(id))
	if id.IsZero() {
		return entity.User{}, apperr.MalformedInput("id is required")
	}
	email, err := checkEmail(email)
	if err != nil {
		return entity.User{}, err
	}
	u, err := s.store.UpdateEmail(ctx, id, email)
	if err != nil {
		return entity.User{}, mapError(err, id)
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id entity.UserID) error {
	id = entity.NormalizeUserID(string(id))
	if id.IsZero() {
		return apperr.MalformedInput("id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapError(err, id)
	}
	return nil
}

// Exists reports NotFound for an unknown user and nil otherwise.
func (s *Service) Exists(ctx context.Context, id entity.UserID) error {
	_, err := s.Get(ctx, id)
	return err
}

func checkEmail(raw string) (string, error) {
	email := entity.NormalizeEmail(raw)
	if email == "" {
		return "", apperr.MalformedInput("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.MalformedInput("email %q is not a valid address", raw)
	}
	return email, nil
}

func mapError(err error, id entity.UserID) error {
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		return apperr.NotFound("user %q not found", id)
	case errors.Is(err, userrepo.ErrConflict):
		return apperr.Conflict("user %q or its email already exists", id)
	default:
		return apperr.Internal(fmt.Errorf("user %s: %w", id, err))
	}
}
