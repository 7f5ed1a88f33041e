package annotation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostgresStoreRetriesSchemaAfterFailure(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://fastform@127.0.0.1:1/fastform?connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewPostgresStore(db)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, stop := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer stop()

	tests := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{"cancelled", cancelled, context.Canceled},
		{"expired", expired, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		err := s.ensureSchema(tt.ctx)
		require.ErrorIs(t, err, tt.want, tt.name)
		require.False(t, s.schemaReady, tt.name)
	}
}
