package user

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"fastform/internal/gateway/entity"
	userrepo "fastform/internal/gateway/repository/user"
)

type Store = userrepo.Store

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 2 * time.Minute, MaxEntries: 4096}
}

// CachedStore caches user lookups. Every chat turn checks that its user
// exists, so Get is hot.
type CachedStore struct {
	origin Store
	byID   *expirable.LRU[entity.UserID, entity.User]
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &CachedStore{
		origin: origin,
		byID:   expirable.NewLRU[entity.UserID, entity.User](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (s *CachedStore) Create(ctx context.Context, u entity.User) (entity.User, error) {
	created, err := s.origin.Create(ctx, u)
	if err != nil {
		return entity.User{}, err
	}
	s.byID.Add(created.ID, created)
	return created, nil
}

func (s *CachedStore) Get(ctx context.Context, id entity.UserID) (entity.User, error) {
	key := entity.NormalizeUserID(string(id))
	if u, ok := s.byID.Get(key); ok {
		return u, nil
	}
	u, err := s.origin.Get(ctx, key)
	if err != nil {
		return entity.User{}, err
	}
	s.byID.Add(key, u)
	return u, nil
}

func (s *CachedStore) UpdateEmail(ctx context.Context, id entity.UserID, email string) (entity.User, error) {
	key := entity.NormalizeUserID(string(id))
	updated, err := s.origin.UpdateEmail(ctx, key, email)
	if err != nil {
		s.byID.Remove(key)
		return entity.User{}, err
	}
	s.byID.Add(key, updated)
	return updated, nil
}

func (s *CachedStore) Delete(ctx context.Context, id entity.UserID) error {
	key := entity.NormalizeUserID(string(id))
	s.byID.Remove(key)
	return s.origin.Delete(ctx, key)
}
