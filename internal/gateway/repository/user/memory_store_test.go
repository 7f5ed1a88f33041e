package user

import (
	"context"
	"errors"
	"testing"

	"fastform/internal/gateway/entity"
)

func TestMemoryStoreConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Create(ctx, entity.User{ID: "u1", Email: "Ann@Example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, entity.User{ID: " u1 ", Email: "other@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate id err = %v, want ErrConflict", err)
	}
	if _, err := s.Create(ctx, entity.User{ID: "u2", Email: "ann@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "ann@example.com" {
		t.Fatalf("email not normalized: %q", got.Email)
	}
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.UpdateEmail(ctx, "missing", "x@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateEmail err = %v, want ErrNotFound", err)
	}
	if _, err := s.Create(ctx, entity.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := s.UpdateEmail(ctx, "u1", "b@example.com")
	if err != nil || updated.Email != "b@example.com" {
		t.Fatalf("UpdateEmail = %+v, %v", updated, err)
	}
	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete err = %v, want ErrNotFound", err)
	}
}
