package thread

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fastform/internal/gateway/entity"
)

type memoryThread struct {
	thread   entity.Thread
	messages []entity.Message
}

type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*memoryThread
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*memoryThread)}
}

func (s *MemoryStore) GetThread(_ context.Context, threadID string) (entity.Thread, bool, error) {
	if s == nil {
		return entity.Thread{}, false, fmt.Errorf("store is nil")
	}
	id := normalizeThreadID(threadID)
	if id == "" {
		return entity.Thread{}, false, fmt.Errorf("thread_id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[id]
	if !ok {
		return entity.Thread{}, false, nil
	}
	return th.snapshot(), true, nil
}

func (s *MemoryStore) ListThreadsByUser(_ context.Context, userID entity.UserID) ([]entity.Thread, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if userID.IsZero() {
		return nil, fmt.Errorf("user_id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Thread, 0, 8)
	for _, th := range s.threads {
		if th.thread.UserID == userID {
			out = append(out, th.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg entity.Message) (entity.Message, error) {
	if s == nil {
		return entity.Message{}, fmt.Errorf("store is nil")
	}
	msg.ThreadID = normalizeThreadID(msg.ThreadID)
	if msg.ThreadID == "" {
		return entity.Message{}, fmt.Errorf("thread_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg), nil
}

func (s *MemoryStore) ListMessages(_ context.Context, threadID string) ([]entity.Message, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id := normalizeThreadID(threadID)
	if id == "" {
		return nil, fmt.Errorf("thread_id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[id]
	if !ok {
		return []entity.Message{}, nil
	}
	out := make([]entity.Message, len(th.messages))
	for i, m := range th.messages {
		m.Pages = clonePages(m.Pages)
		out[i] = m
	}
	return out, nil
}

func (s *MemoryStore) PutDocument(_ context.Context, threadID string, userID entity.UserID, document string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id := normalizeThreadID(threadID)
	if id == "" {
		return fmt.Errorf("thread_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	th := s.threadLocked(id, userID, time.Now().UTC())
	th.thread.Document = document
	return nil
}

func (s *MemoryStore) CommitTurn(_ context.Context, threadID string, userID entity.UserID, document string, reply entity.Message) (entity.Message, error) {
	if s == nil {
		return entity.Message{}, fmt.Errorf("store is nil")
	}
	id := normalizeThreadID(threadID)
	if id == "" {
		return entity.Message{}, fmt.Errorf("thread_id is required")
	}
	reply.ThreadID = id
	reply.UserID = userID
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.appendLocked(reply)
	if document != "" {
		s.threads[id].thread.Document = document
	}
	return saved, nil
}

func (s *MemoryStore) appendLocked(msg entity.Message) entity.Message {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	th := s.threadLocked(msg.ThreadID, msg.UserID, msg.CreatedAt)
	s.nextID++
	msg.ID = s.nextID
	msg.Pages = clonePages(msg.Pages)
	th.messages = append(th.messages, msg)
	th.thread.UpdatedAt = msg.CreatedAt
	return msg
}

func (s *MemoryStore) threadLocked(id string, userID entity.UserID, now time.Time) *memoryThread {
	th, ok := s.threads[id]
	if !ok {
		th = &memoryThread{thread: entity.Thread{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}}
		s.threads[id] = th
	}
	return th
}

func (t *memoryThread) snapshot() entity.Thread {
	out := t.thread
	out.Messages = len(t.messages)
	return out
}
