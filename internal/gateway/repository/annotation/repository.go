package annotation

import (
	"context"
	"errors"

	"fastform/internal/gateway/entity"
)

// Store persists annotations. Structure text is stored as given.
type Store interface {
	Create(ctx context.Context, a entity.Annotation) (entity.Annotation, error)
	Get(ctx context.Context, id int64) (entity.Annotation, error)
	Update(ctx context.Context, id int64, patch entity.AnnotationPatch) (entity.Annotation, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID entity.UserID, page entity.Page) ([]entity.Annotation, error)
}

var ErrNotFound = errors.New("annotation not found")

func applyPatch(a entity.Annotation, patch entity.AnnotationPatch) entity.Annotation {
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Structure != nil {
		a.Structure = *patch.Structure
	}
	return a
}
