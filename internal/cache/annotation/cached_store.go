package annotation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"fastform/internal/gateway/entity"
	annotationrepo "fastform/internal/gateway/repository/annotation"
)

type Store = annotationrepo.Store

type CacheConfig struct {
	ItemTTL        time.Duration
	ItemMaxEntries int
	ListTTL        time.Duration
	ListMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ItemTTL:        5 * time.Minute,
		ItemMaxEntries: 2048,
		ListTTL:        30 * time.Second,
		ListMaxEntries: 512,
	}
}

type MetricsSnapshot struct {
	Hits        uint64
	Misses      uint64
	OriginReads uint64
}

// CachedStore is a read-through cache over an annotation store. Writes go
// to the origin first and then refresh or drop the affected entries.
type CachedStore struct {
	origin Store

	items *expirable.LRU[int64, entity.Annotation]
	lists *expirable.LRU[string, []entity.Annotation]

	hits        atomic.Uint64
	misses      atomic.Uint64
	originReads atomic.Uint64
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.ItemTTL <= 0 {
		cfg.ItemTTL = def.ItemTTL
	}
	if cfg.ItemMaxEntries <= 0 {
		cfg.ItemMaxEntries = def.ItemMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	return &CachedStore{
		origin: origin,
		items:  expirable.NewLRU[int64, entity.Annotation](cfg.ItemMaxEntries, nil, cfg.ItemTTL),
		lists:  expirable.NewLRU[string, []entity.Annotation](cfg.ListMaxEntries, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Create(ctx context.Context, a entity.Annotation) (entity.Annotation, error) {
	created, err := s.origin.Create(ctx, a)
	if err != nil {
		return entity.Annotation{}, err
	}
	s.items.Add(created.ID, created)
	s.lists.Purge()
	return created, nil
}

func (s *CachedStore) Get(ctx context.Context, id int64) (entity.Annotation, error) {
	if a, ok := s.items.Get(id); ok {
		s.hits.Add(1)
		return a, nil
	}
	s.misses.Add(1)
	s.originReads.Add(1)
	a, err := s.origin.Get(ctx, id)
	if err != nil {
		return entity.Annotation{}, err
	}
	s.items.Add(id, a)
	return a, nil
}

func (s *CachedStore) Update(ctx context.Context, id int64, patch entity.AnnotationPatch) (entity.Annotation, error) {
	updated, err := s.origin.Update(ctx, id, patch)
	if err != nil {
		s.items.Remove(id)
		return entity.Annotation{}, err
	}
	s.items.Add(id, updated)
	s.lists.Purge()
	return updated, nil
}

func (s *CachedStore) Delete(ctx context.Context, id int64) error {
	s.items.Remove(id)
	s.lists.Purge()
	return s.origin.Delete(ctx, id)
}

func (s *CachedStore) ListByUser(ctx context.Context, userID entity.UserID, page entity.Page) ([]entity.Annotation, error) {
	page = page.Normalize()
	key := fmt.Sprintf("%s|%d|%d", userID.String(), page.Skip, page.Limit)
	if list, ok := s.lists.Get(key); ok {
		s.hits.Add(1)
		return append([]entity.Annotation(nil), list...), nil
	}
	s.misses.Add(1)
	s.originReads.Add(1)
	list, err := s.origin.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	s.lists.Add(key, append([]entity.Annotation(nil), list...))
	return list, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		OriginReads: s.originReads.Load(),
	}
}
