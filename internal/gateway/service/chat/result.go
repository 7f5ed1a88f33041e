package chat

import (
	"context"
	"time"

	"fastform/internal/apperr"
	"fastform/internal/conversation"
	"fastform/internal/gateway/entity"
	"fastform/internal/util/jsonutil"
)

// Result is one chat message as returned to API callers. Content is the
// serialized {role, content:[{type:"text", text}]} message and FormData the
// serialized canonical document after the turn.
type Result struct {
	ID        int64         `json:"id"`
	Content   string        `json:"content"`
	ThreadID  string        `json:"thread_id"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    entity.UserID `json:"user_id"`
	FormData  string        `json:"form_data"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type content struct {
	Role    entity.Role   `json:"role"`
	Content []contentPart `json:"content"`
}

func resultOf(m entity.Message) (Result, error) {
	b, err := jsonutil.MarshalNoEscape(content{
		Role:    m.Role,
		Content: []contentPart{{Type: "text", Text: m.Text}},
	})
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	return Result{
		ID:        m.ID,
		Content:   string(b),
		ThreadID:  m.ThreadID,
		Timestamp: m.CreatedAt,
		UserID:    m.UserID,
		FormData:  m.FormData,
	}, nil
}

// History returns every message of a thread in order.
func (s *Service) History(ctx context.Context, threadID string) ([]Result, error) {
	thread, ok, err := s.state.Thread(ctx, threadID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound("thread %s not found", threadID)
	}
	msgs, err := s.state.History(ctx, thread.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]Result, 0, len(msgs))
	for _, m := range msgs {
		r, err := resultOf(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ThreadsByUser lists the ids of a user's threads that carry messages of
// workflow, most recently active first.
func (s *Service) ThreadsByUser(ctx context.Context, userID entity.UserID, workflow entity.Workflow) ([]string, error) {
	userID = entity.NormalizeUserID(string(userID))
	if userID.IsZero() {
		return nil, apperr.MalformedInput("user_id is required")
	}
	if err := s.users.Exists(ctx, userID); err != nil {
		return nil, err
	}
	threads, err := s.state.ThreadsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]string, 0, len(threads))
	for _, th := range threads {
		msgs, err := s.state.History(ctx, th.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, m := range msgs {
			if m.Workflow == workflow {
				ids = append(ids, th.ID)
				break
			}
		}
	}
	return ids, nil
}

// Watch subscribes to turn events of a thread.
func (s *Service) Watch(threadID string) (<-chan conversation.Event, func()) {
	return s.state.Events().Subscribe(threadID, 16)
}
