package page

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	pagerepo "fastform/internal/gateway/repository/page"
)

type Store = pagerepo.Store

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	ListTTL        time.Duration
	ListMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		ListTTL:        30 * time.Second,
		ListMaxEntries: 512,
	}
}

type MetricsSnapshot struct {
	BlobHits       uint64
	BlobMisses     uint64
	ListHits       uint64
	ListMisses     uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	blobHits       atomic.Uint64
	blobMisses     atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		BlobHits:       m.blobHits.Load(),
		BlobMisses:     m.blobMisses.Load(),
		ListHits:       m.listHits.Load(),
		ListMisses:     m.listMisses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

// CachedStore reads page images through an LRU with TTL. Pages are replayed
// to the model on every later turn of a thread, so hits are the common case.
type CachedStore struct {
	origin Store

	blobs   *expirable.LRU[string, []byte]
	lists   *expirable.LRU[string, []string]
	metrics Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	return &CachedStore{
		origin: origin,
		blobs:  expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		lists:  expirable.NewLRU[string, []string](cfg.ListMaxEntries, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, threadID, name string, content []byte) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, threadID, name, content); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}
	s.blobs.Add(cacheKey(threadID, name), append([]byte(nil), content...))
	s.lists.Remove(strings.TrimSpace(threadID))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, threadID, name string) ([]byte, error) {
	key := cacheKey(threadID, name)
	if raw, ok := s.blobs.Get(key); ok {
		s.metrics.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.metrics.blobMisses.Add(1)
	s.metrics.originReads.Add(1)

	raw, err := s.origin.Get(ctx, threadID, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.blobs.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) List(ctx context.Context, threadID string) ([]string, error) {
	threadID = strings.TrimSpace(threadID)
	if names, ok := s.lists.Get(threadID); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), names...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	names, err := s.origin.List(ctx, threadID)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.lists.Add(threadID, append([]string(nil), names...))
	return names, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return s.metrics.snapshot()
}

func cacheKey(threadID, name string) string {
	return strings.TrimSpace(threadID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}
