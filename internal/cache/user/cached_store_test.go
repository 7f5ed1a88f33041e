package user

import (
	"context"
	"errors"
	"testing"

	"fastform/internal/gateway/entity"
	userrepo "fastform/internal/gateway/repository/user"
)

type countingStore struct {
	*userrepo.MemoryStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, id entity.UserID) (entity.User, error) {
	s.gets++
	return s.MemoryStore.Get(ctx, id)
}

func TestCachedStoreServesRepeatedLookups(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: userrepo.NewMemoryStore()}
	if _, err := origin.Create(ctx, entity.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	store := NewCachedStore(origin, DefaultCacheConfig())
	for i := 0; i < 3; i++ {
		if _, err := store.Get(ctx, " u1"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if origin.gets != 1 {
		t.Fatalf("origin gets = %d, want 1", origin.gets)
	}
}

func TestCachedStoreDropsDeletedUsers(t *testing.T) {
	ctx := context.Background()
	store := NewCachedStore(userrepo.NewMemoryStore(), DefaultCacheConfig())
	if _, err := store.Create(ctx, entity.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.UpdateEmail(ctx, "u1", "b@example.com"); err != nil {
		t.Fatalf("UpdateEmail: %v", err)
	}
	got, err := store.Get(ctx, "u1")
	if err != nil || got.Email != "b@example.com" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, userrepo.ErrNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}
}
