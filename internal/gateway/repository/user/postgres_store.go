package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
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
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email) WHERE email <> '';
`); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, u entity.User) (entity.User, error) {
	u.ID = entity.NormalizeUserID(string(u.ID))
	u.Email = entity.NormalizeEmail(u.Email)
	if u.ID.IsZero() {
		return entity.User{}, fmt.Errorf("user_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return entity.User{}, err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)`,
		u.ID.String(), u.Email, u.CreatedAt)
	if err != nil {
		return entity.User{}, mapError(err)
	}
	return u, nil
}

func (s *PostgresStore) Get(ctx context.Context, id entity.UserID) (entity.User, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return entity.User{}, err
	}
	var (
		u   entity.User
		raw string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, id.String()).
		Scan(&raw, &u.Email, &u.CreatedAt)
	if err != nil {
		return entity.User{}, mapError(err)
	}
	u.ID = entity.UserID(raw)
	return u, nil
}

func (s *PostgresStore) UpdateEmail(ctx context.Context, id entity.UserID, email string) (entity.User, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return entity.User{}, err
	}
	var (
		u   entity.User
		raw string
	)
	err := s.db.QueryRowContext(ctx, `UPDATE users SET email = $2 WHERE id = $1 RETURNING id, email, created_at`,
		id.String(), entity.NormalizeEmail(email)).Scan(&raw, &u.Email, &u.CreatedAt)
	if err != nil {
		return entity.User{}, mapError(err)
	}
	u.ID = entity.UserID(raw)
	return u, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id entity.UserID) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.String())
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

// mapError turns driver errors into the package sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
