package form

import (
	"errors"
	"fmt"
	"strings"
)

// ViolationKind classifies a single schema violation.
type ViolationKind string

const (
	ViolationType         ViolationKind = "type"
	ViolationMissing      ViolationKind = "missing"
	ViolationEmpty        ViolationKind = "empty"
	ViolationUnknownField ViolationKind = "unknown_field"
	ViolationBBox         ViolationKind = "bbox"
	ViolationValue        ViolationKind = "value"
	ViolationOption       ViolationKind = "option"
	ViolationBounds       ViolationKind = "bounds"
	ViolationRange        ViolationKind = "range"
	ViolationTableShape   ViolationKind = "table_shape"
	ViolationDepth        ViolationKind = "depth"
	ViolationRepeatCount  ViolationKind = "repeat_count"
)

// Violation names one problem and where it sits in the tree, e.g.
// `elements[3].annotations[0].options[1].value`.
type Violation struct {
	Path    string        `json:"path"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// ValidationError carries every violation found in a document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "form: invalid document"
	}
	const shown = 3
	parts := make([]string, 0, shown)
	for i, v := range e.Violations {
		if i == shown {
			break
		}
		parts = append(parts, v.String())
	}
	msg := fmt.Sprintf("form: %d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
	if len(e.Violations) > shown {
		msg += "; ..."
	}
	return msg
}

// StructureDivergenceError reports that a candidate document differs
// structurally from the canonical one in a mode that forbids it.
type StructureDivergenceError struct {
	// Path is the first diverging location.
	Path string
	// Paths lists every diverging location found, Path included.
	Paths []string
	// Diff is a human-readable diff of both structures, prior first.
	Diff string
}

func (e *StructureDivergenceError) Error() string {
	return "form: structure diverges from canonical document at " + displayPath(e.Path)
}

// ErrNoPriorDocument is returned when a value-only merge has no canonical
// document to merge into.
var ErrNoPriorDocument = errors.New("form: no canonical document to fill")

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsDivergenceError unwraps err into a *StructureDivergenceError.
func AsDivergenceError(err error) (*StructureDivergenceError, bool) {
	var de *StructureDivergenceError
	ok := errors.As(err, &de)
	return de, ok
}

func displayPath(p string) string {
	if p == "" {
		return "document"
	}
	return p
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}
