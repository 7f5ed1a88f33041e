package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fastform/internal/gateway/entity"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[entity.UserID]entity.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[entity.UserID]entity.User)}
}

func (s *MemoryStore) Create(_ context.Context, u entity.User) (entity.User, error) {
	if s == nil {
		return entity.User{}, fmt.Errorf("store is nil")
	}
	u.ID = entity.NormalizeUserID(string(u.ID))
	u.Email = entity.NormalizeEmail(u.Email)
	if u.ID.IsZero() {
		return entity.User{}, fmt.Errorf("user_id is required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; ok {
		return entity.User{}, ErrConflict
	}
	if s.emailTakenLocked(u.Email, "") {
		return entity.User{}, ErrConflict
	}
	s.byID[u.ID] = u
	return u, nil
}

func (s *MemoryStore) Get(_ context.Context, id entity.UserID) (entity.User, error) {
	if s == nil {
		return entity.User{}, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[entity.NormalizeUserID(string(id))]
	if !ok {
		return entity.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdateEmail(_ context.Context, id entity.UserID, email string) (entity.User, error) {
	if s == nil {
		return entity.User{}, fmt.Errorf("store is nil")
	}
	key := entity.NormalizeUserID(string(id))
	email = entity.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[key]
	if !ok {
		return entity.User{}, ErrNotFound
	}
	if s.emailTakenLocked(email, key) {
		return entity.User{}, ErrConflict
	}
	u.Email = email
	s.byID[key] = u
	return u, nil
}

func (s *MemoryStore) Delete(_ context.Context, id entity.UserID) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key := entity.NormalizeUserID(string(id))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[key]; !ok {
		return ErrNotFound
	}
	delete(s.byID, key)
	return nil
}

func (s *MemoryStore) emailTakenLocked(email string, except entity.UserID) bool {
	if email == "" {
		return false
	}
	for id, u := range s.byID {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}
