package thread

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fastform/internal/gateway/entity"
)

func TestMemoryStoreCommitTurn(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.AppendMessage(ctx, entity.Message{ThreadID: "t1", UserID: "u1", Role: entity.RoleUser, Text: "hi", Pages: []string{"a.png"}})
	require.NoError(t, err)
	reply, err := s.CommitTurn(ctx, "t1", "u1", `{"title":"T"}`, entity.Message{Role: entity.RoleAssistant, Text: "ok"})
	require.NoError(t, err)
	require.Equal(t, "t1", reply.ThreadID)
	require.Equal(t, int64(2), reply.ID)

	th, ok, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"title":"T"}`, th.Document)
	require.Equal(t, 2, th.Messages)

	// An empty document leaves the stored one in place.
	_, err = s.CommitTurn(ctx, "t1", "u1", "", entity.Message{Role: entity.RoleAssistant, Text: "just talking"})
	require.NoError(t, err)
	th, _, _ = s.GetThread(ctx, "t1")
	require.Equal(t, `{"title":"T"}`, th.Document)

	msgs, err := s.ListMessages(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	msgs[0].Pages[0] = "mutated"
	again, _ := s.ListMessages(ctx, "t1")
	require.Equal(t, "a.png", again[0].Pages[0])
}

func TestMemoryStoreListThreadsByUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		_, err := s.AppendMessage(ctx, entity.Message{ThreadID: id, UserID: "u1", Text: "x", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := s.AppendMessage(ctx, entity.Message{ThreadID: "other", UserID: "u2", Text: "x"})
	require.NoError(t, err)

	list, err := s.ListThreadsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].ID)

	_, err = s.ListThreadsByUser(ctx, "")
	require.Error(t, err)
}
