package conversation

import (
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	EventTurnCommitted EventType = "turn_committed"
	EventTurnRejected  EventType = "turn_rejected"
)

// Event announces the outcome of a turn to thread watchers.
type Event struct {
	Type      EventType `json:"type"`
	ThreadID  string    `json:"thread_id"`
	MessageID int64     `json:"message_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	FormData  string    `json:"form_data,omitempty"`
	At        time.Time `json:"at"`
}

// EventBroker fans turn events out to per-thread subscribers. Slow
// subscribers lose events instead of blocking turns.
type EventBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

func NewEventBroker() *EventBroker {
	return &EventBroker{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers a buffered channel for threadID. The returned cancel
// closes the channel and is safe to call more than once.
func (b *EventBroker) Subscribe(threadID string, size int) (<-chan Event, func()) {
	if size <= 0 {
		size = 16
	}
	key := strings.TrimSpace(threadID)
	ch := make(chan Event, size)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[key] == nil {
		b.subs[key] = make(map[int]chan Event)
	}
	b.subs[key][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[key], id)
			if len(b.subs[key]) == 0 {
				delete(b.subs, key)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every current subscriber of ev.ThreadID.
func (b *EventBroker) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[strings.TrimSpace(ev.ThreadID)] {
		select {
		case ch <- ev:
		default:
		}
	}
}
