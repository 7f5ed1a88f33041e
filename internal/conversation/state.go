// Package conversation holds per-thread chat history and the canonical form
// document, and serializes turns within a thread.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fastform/internal/form"
	"fastform/internal/gateway/entity"
)

// Store persists threads and their messages. Document strings are
// serialized form documents; the empty string means none.
type Store interface {
	GetThread(ctx context.Context, threadID string) (entity.Thread, bool, error)
	ListThreadsByUser(ctx context.Context, userID entity.UserID) ([]entity.Thread, error)
	AppendMessage(ctx context.Context, msg entity.Message) (entity.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]entity.Message, error)
	PutDocument(ctx context.Context, threadID string, userID entity.UserID, document string) error
	// CommitTurn stores document (unless empty) and appends reply as one
	// atomic step.
	CommitTurn(ctx context.Context, threadID string, userID entity.UserID, document string, reply entity.Message) (entity.Message, error)
}

// State is the conversation state of every thread.
type State struct {
	store    Store
	seq      *Sequencer
	events   *EventBroker
	maxDepth int
}

func New(store Store, events *EventBroker, maxDepth int) *State {
	if events == nil {
		events = NewEventBroker()
	}
	return &State{
		store:    store,
		seq:      NewSequencer(),
		events:   events,
		maxDepth: maxDepth,
	}
}

func (s *State) Events() *EventBroker { return s.events }

// Begin waits for exclusive use of threadID. Turns on other threads proceed
// in parallel. The caller must End the turn.
func (s *State) Begin(ctx context.Context, threadID string) (*Turn, error) {
	id := strings.TrimSpace(threadID)
	if id == "" {
		return nil, fmt.Errorf("thread_id is required")
	}
	release, err := s.seq.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wait for thread %s: %w", id, err)
	}
	return &Turn{state: s, threadID: id, release: release}, nil
}

// Thread returns the thread record, reporting false when it has no history.
func (s *State) Thread(ctx context.Context, threadID string) (entity.Thread, bool, error) {
	return s.store.GetThread(ctx, strings.TrimSpace(threadID))
}

func (s *State) ThreadsByUser(ctx context.Context, userID entity.UserID) ([]entity.Thread, error) {
	return s.store.ListThreadsByUser(ctx, userID)
}

func (s *State) History(ctx context.Context, threadID string) ([]entity.Message, error) {
	return s.store.ListMessages(ctx, strings.TrimSpace(threadID))
}

// Append adds msg to its thread's history.
func (s *State) Append(ctx context.Context, msg entity.Message) (entity.Message, error) {
	msg.ThreadID = strings.TrimSpace(msg.ThreadID)
	if msg.ThreadID == "" {
		return entity.Message{}, fmt.Errorf("thread_id is required")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return s.store.AppendMessage(ctx, msg)
}

// CanonicalDocument returns the thread's current document, or nil when the
// thread has none yet.
func (s *State) CanonicalDocument(ctx context.Context, threadID string) (*form.Document, error) {
	th, ok, err := s.store.GetThread(ctx, strings.TrimSpace(threadID))
	if err != nil {
		return nil, err
	}
	if !ok || th.Document == "" {
		return nil, nil
	}
	doc, err := form.Decode([]byte(th.Document), form.Options{MaxDepth: s.maxDepth})
	if err != nil {
		return nil, fmt.Errorf("stored document for thread %s: %w", th.ID, err)
	}
	return doc, nil
}

func (s *State) SetCanonicalDocument(ctx context.Context, threadID string, userID entity.UserID, doc *form.Document) error {
	text, err := encode(doc)
	if err != nil {
		return err
	}
	return s.store.PutDocument(ctx, strings.TrimSpace(threadID), userID, text)
}

func encode(doc *form.Document) (string, error) {
	if doc == nil {
		return "", nil
	}
	b, err := form.Encode(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

// Turn is exclusive access to one thread for the duration of a chat turn.
type Turn struct {
	state    *State
	threadID string
	release  func()
}

func (t *Turn) ThreadID() string { return t.threadID }

func (t *Turn) Thread(ctx context.Context) (entity.Thread, bool, error) {
	return t.state.Thread(ctx, t.threadID)
}

func (t *Turn) CanonicalDocument(ctx context.Context) (*form.Document, error) {
	return t.state.CanonicalDocument(ctx, t.threadID)
}

func (t *Turn) History(ctx context.Context) ([]entity.Message, error) {
	return t.state.History(ctx, t.threadID)
}

func (t *Turn) Append(ctx context.Context, msg entity.Message) (entity.Message, error) {
	msg.ThreadID = t.threadID
	return t.state.Append(ctx, msg)
}

// Commit makes doc canonical and appends reply. A nil doc leaves the
// canonical document unchanged.
func (t *Turn) Commit(ctx context.Context, userID entity.UserID, doc *form.Document, reply entity.Message) (entity.Message, error) {
	text, err := encode(doc)
	if err != nil {
		return entity.Message{}, err
	}
	reply.ThreadID = t.threadID
	reply.UserID = userID
	reply.Role = entity.RoleAssistant
	reply.FormData = text
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	saved, err := t.state.store.CommitTurn(ctx, t.threadID, userID, text, reply)
	if err != nil {
		return entity.Message{}, err
	}
	t.state.events.Publish(Event{
		Type:      EventTurnCommitted,
		ThreadID:  t.threadID,
		MessageID: saved.ID,
		Message:   saved.Text,
		FormData:  text,
		At:        saved.CreatedAt,
	})
	return saved, nil
}

// Reject announces a failed turn. The canonical document is untouched.
func (t *Turn) Reject(kind, message, formData string) {
	t.state.events.Publish(Event{
		Type:     EventTurnRejected,
		ThreadID: t.threadID,
		Kind:     kind,
		Message:  message,
		FormData: formData,
	})
}

// End releases the thread. It is safe to call more than once.
func (t *Turn) End() {
	if t != nil && t.release != nil {
		t.release()
	}
}
