package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fastform/internal/apperr"
	"fastform/internal/gateway/entity"
	annotationrepo "fastform/internal/gateway/repository/annotation"
)

// UserChecker reports NotFound for unknown users.
type UserChecker interface {
	Exists(ctx context.Context, id entity.UserID) error
}

// Service implements annotation CRUD. Structures are checked to be JSON
// objects here and validated as forms only when a fill thread loads them.
type Service struct {
	store annotationrepo.Store
	users UserChecker
}

func New(store annotationrepo.Store, users UserChecker) *Service {
	return &Service{store: store, users: users}
}

type CreateInput struct {
	UserID      entity.UserID
	Name        string
	Description string
	Structure   string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (entity.Annotation, error) {
	userID := entity.NormalizeUserID(string(in.UserID))
	if userID.IsZero() {
		return entity.Annotation{}, apperr.MalformedInput("user_id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return entity.Annotation{}, apperr.MalformedInput("name is required")
	}
	if err := checkStructure(in.Structure); err != nil {
		return entity.Annotation{}, err
	}
	if err := s.users.Exists(ctx, userID); err != nil {
		return entity.Annotation{}, err
	}
	now := time.Now().UTC()
	a, err := s.store.Create(ctx, entity.Annotation{
		UserID:      userID,
		Name:        name,
		Description: in.Description,
		Structure:   in.Structure,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return entity.Annotation{}, apperr.Internal(fmt.Errorf("create annotation: %w", err))
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id int64) (entity.Annotation, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return entity.Annotation{}, mapError(err, id)
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch entity.AnnotationPatch) (entity.Annotation, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return entity.Annotation{}, apperr.MalformedInput("name must not be empty")
		}
		patch.Name = &name
	}
	if patch.Structure != nil {
		if err := checkStructure(*patch.Structure); err != nil {
			return entity.Annotation{}, err
		}
	}
	a, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return entity.Annotation{}, mapError(err, id)
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapError(err, id)
	}
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID entity.UserID, page entity.Page) ([]entity.Annotation, error) {
	userID = entity.NormalizeUserID(string(userID))
	if userID.IsZero() {
		return nil, apperr.MalformedInput("user_id is required")
	}
	if err := s.users.Exists(ctx, userID); err != nil {
		return nil, err
	}
	list, err := s.store.ListByUser(ctx, userID, page.Normalize())
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list annotations: %w", err))
	}
	return list, nil
}

func checkStructure(raw string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return apperr.MalformedInput("structure must be a JSON object: %v", err)
	}
	return nil
}

func mapError(err error, id int64) error {
	if errors.Is(err, annotationrepo.ErrNotFound) {
		return apperr.NotFound("annotation %d not found", id)
	}
	return apperr.Internal(fmt.Errorf("annotation %d: %w", id, err))
}
