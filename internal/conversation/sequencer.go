package conversation

import (
	"context"
	"sync"
)

// Sequencer serializes work per key. Holders of different keys never wait
// on each other. Idle keys are dropped, so the map only holds keys with a
// holder or a waiter.
type Sequencer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	token chan struct{}
	refs  int
}

func NewSequencer() *Sequencer {
	return &Sequencer{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free or ctx is done. The returned release
// must be called exactly once.
func (s *Sequencer) Acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{token: make(chan struct{}, 1)}
		s.slots[key] = sl
	}
	sl.refs++
	s.mu.Unlock()

	select {
	case sl.token <- struct{}{}:
	case <-ctx.Done():
		s.drop(key, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.token
			s.drop(key, sl)
		})
	}, nil
}

func (s *Sequencer) drop(key string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, key)
	}
}

// Len reports how many keys are held or awaited.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
