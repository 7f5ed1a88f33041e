package annotation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fastform/internal/gateway/entity"
)

type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]entity.Annotation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]entity.Annotation)}
}

func (s *MemoryStore) Create(_ context.Context, a entity.Annotation) (entity.Annotation, error) {
	if s == nil {
		return entity.Annotation{}, fmt.Errorf("store is nil")
	}
	if a.UserID.IsZero() {
		return entity.Annotation{}, fmt.Errorf("user_id is required")
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = now
	a.UpdatedAt = now
	s.byID[a.ID] = a
	return a, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (entity.Annotation, error) {
	if s == nil {
		return entity.Annotation{}, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return entity.Annotation{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, patch entity.AnnotationPatch) (entity.Annotation, error) {
	if s == nil {
		return entity.Annotation{}, fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return entity.Annotation{}, ErrNotFound
	}
	a = applyPatch(a, patch)
	a.UpdatedAt = time.Now().UTC()
	s.byID[id] = a
	return a, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID entity.UserID, page entity.Page) ([]entity.Annotation, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	page = page.Normalize()
	s.mu.RLock()
	all := make([]entity.Annotation, 0, 16)
	for _, a := range s.byID {
		if a.UserID == userID {
			all = append(all, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if page.Skip >= len(all) {
		return []entity.Annotation{}, nil
	}
	end := page.Skip + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Skip:end], nil
}
