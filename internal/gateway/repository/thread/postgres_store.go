package thread

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fastform/internal/gateway/entity"
)

type PostgresStore struct {
	db *sql.DB

	// schemaMu guards schemaReady. A failed schema step is retried on the
	// next call.
	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS chat_threads (
  thread_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  document TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_threads_user_id ON chat_threads (user_id);

CREATE TABLE IF NOT EXISTS chat_messages (
  id BIGSERIAL PRIMARY KEY,
  thread_id TEXT NOT NULL REFERENCES chat_threads (thread_id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  workflow TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL DEFAULT '',
  pages JSONB NOT NULL DEFAULT '[]',
  form_data TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_thread_id ON chat_messages (thread_id, id);
`); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const threadColumns = `t.thread_id, t.user_id, t.document, t.created_at, t.updated_at,
  (SELECT COUNT(*) FROM chat_messages m WHERE m.thread_id = t.thread_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (entity.Thread, error) {
	var (
		th     entity.Thread
		userID string
	)
	if err := row.Scan(&th.ID, &userID, &th.Document, &th.CreatedAt, &th.UpdatedAt, &th.Messages); err != nil {
		return entity.Thread{}, err
	}
	th.UserID = entity.UserID(userID)
	return th, nil
}

func (s *PostgresStore) GetThread(ctx context.Context, threadID string) (entity.Thread, bool, error) {
	id := normalizeThreadID(threadID)
	if id == "" {
		return entity.Thread{}, false, fmt.Errorf("thread_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return entity.Thread{}, false, err
	}
	th, err := scanThread(s.db.QueryRowContext(ctx, `SELECT `+threadColumns+`
FROM chat_threads t WHERE t.thread_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Thread{}, false, nil
	}
	if err != nil {
		return entity.Thread{}, false, err
	}
	return th, true, nil
}

func (s *PostgresStore) ListThreadsByUser(ctx context.Context, userID entity.UserID) ([]entity.Thread, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("user_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+threadColumns+`
FROM chat_threads t WHERE t.user_id = $1
ORDER BY t.updated_at DESC, t.thread_id`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]entity.Thread, 0, 8)
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, th)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg entity.Message) (entity.Message, error) {
	msg.ThreadID = normalizeThreadID(msg.ThreadID)
	if msg.ThreadID == "" {
		return entity.Message{}, fmt.Errorf("thread_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return entity.Message{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()
	saved, err := insertMessage(ctx, tx, msg)
	if err != nil {
		return entity.Message{}, err
	}
	return saved, tx.Commit()
}

func (s *PostgresStore) ListMessages(ctx context.Context, threadID string) ([]entity.Message, error) {
	id := normalizeThreadID(threadID)
	if id == "" {
		return nil, fmt.Errorf("thread_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, thread_id, user_id, role, workflow, body, pages, form_data, created_at
FROM chat_messages WHERE thread_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]entity.Message, 0, 32)
	for rows.Next() {
		var (
			m                      entity.Message
			userID, role, workflow string
			pages                  []byte
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &userID, &role, &workflow, &m.Text, &pages, &m.FormData, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.UserID = entity.UserID(userID)
		m.Role = entity.Role(role)
		m.Workflow = entity.Workflow(workflow)
		if err := json.Unmarshal(pages, &m.Pages); err != nil {
			return nil, fmt.Errorf("decode pages of message %d: %w", m.ID, err)
		}
		m.Pages = clonePages(m.Pages)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutDocument(ctx context.Context, threadID string, userID entity.UserID, document string) error {
	id := normalizeThreadID(threadID)
	if id == "" {
		return fmt.Errorf("thread_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO chat_threads (thread_id, user_id, document, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (thread_id)
DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`,
		id, userID.String(), document)
	return err
}

func (s *PostgresStore) CommitTurn(ctx context.Context, threadID string, userID entity.UserID, document string, reply entity.Message) (entity.Message, error) {
	id := normalizeThreadID(threadID)
	if id == "" {
		return entity.Message{}, fmt.Errorf("thread_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return entity.Message{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	reply.ThreadID = id
	reply.UserID = userID
	saved, err := insertMessage(ctx, tx, reply)
	if err != nil {
		return entity.Message{}, err
	}
	if strings.TrimSpace(document) != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE chat_threads SET document = $2 WHERE thread_id = $1`, id, document); err != nil {
			return entity.Message{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return entity.Message{}, err
	}
	return saved, nil
}

func insertMessage(ctx context.Context, db execer, msg entity.Message) (entity.Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	pages := msg.Pages
	if pages == nil {
		pages = []string{}
	}
	rawPages, err := json.Marshal(pages)
	if err != nil {
		return entity.Message{}, err
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO chat_threads (thread_id, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (thread_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		msg.ThreadID, msg.UserID.String(), msg.CreatedAt); err != nil {
		return entity.Message{}, err
	}
	err = db.QueryRowContext(ctx, `
INSERT INTO chat_messages (thread_id, user_id, role, workflow, body, pages, form_data, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		msg.ThreadID, msg.UserID.String(), string(msg.Role), string(msg.Workflow), msg.Text, string(rawPages), msg.FormData, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return entity.Message{}, err
	}
	msg.Pages = clonePages(msg.Pages)
	return msg, nil
}
