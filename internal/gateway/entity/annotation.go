package entity

import "time"

// Annotation is a saved form structure that can seed a fill conversation.
// Structure holds the serialized form document and is validated when used,
// not when stored.
type Annotation struct {
	ID          int64     `json:"id"`
	UserID      UserID    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Structure   string    `json:"structure"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AnnotationPatch carries the fields of an update. Nil fields are left
// unchanged.
type AnnotationPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Structure   *string `json:"structure,omitempty"`
}

// Page bounds a listing.
type Page struct {
	Skip  int
	Limit int
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Normalize clamps p to valid bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
