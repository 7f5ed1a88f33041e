package annotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

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
CREATE TABLE IF NOT EXISTS annotations (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  structure TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_annotations_user_id ON annotations (user_id, id);
`); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

const annotationColumns = `id, user_id, name, description, structure, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row rowScanner) (entity.Annotation, error) {
	var (
		a      entity.Annotation
		userID string
	)
	err := row.Scan(&a.ID, &userID, &a.Name, &a.Description, &a.Structure, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Annotation{}, ErrNotFound
	}
	if err != nil {
		return entity.Annotation{}, err
	}
	a.UserID = entity.UserID(userID)
	return a, nil
}

func (s *PostgresStore) Create(ctx context.Context, a entity.Annotation) (entity.Annotation, error) {
	if a.UserID.IsZero() {
		return entity.Annotation{}, fmt.Errorf("user_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return entity.Annotation{}, err
	}
	return scanAnnotation(s.db.QueryRowContext(ctx, `
INSERT INTO annotations (user_id, name, description, structure)
VALUES ($1, $2, $3, $4)
RETURNING `+annotationColumns,
		a.UserID.String(), a.Name, a.Description, a.Structure))
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (entity.Annotation, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return entity.Annotation{}, err
	}
	return scanAnnotation(s.db.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE id = $1`, id))
}

func (s *PostgresStore) Update(ctx context.Context, id int64, patch entity.AnnotationPatch) (entity.Annotation, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return entity.Annotation{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Annotation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanAnnotation(tx.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return entity.Annotation{}, err
	}
	next := applyPatch(cur, patch)
	updated, err := scanAnnotation(tx.QueryRowContext(ctx, `
UPDATE annotations SET name = $2, description = $3, structure = $4, updated_at = NOW()
WHERE id = $1
RETURNING `+annotationColumns,
		id, next.Name, next.Description, next.Structure))
	if err != nil {
		return entity.Annotation{}, err
	}
	if err := tx.Commit(); err != nil {
		return entity.Annotation{}, err
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID entity.UserID, page entity.Page) ([]entity.Annotation, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `SELECT `+annotationColumns+`
FROM annotations WHERE user_id = $1 ORDER BY id OFFSET $2 LIMIT $3`, userID.String(), page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]entity.Annotation, 0, page.Limit)
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
