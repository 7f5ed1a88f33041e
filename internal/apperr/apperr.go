// Package apperr classifies failures into the kinds reported to API
// callers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fastform/internal/form"
)

type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindValidation          Kind = "validation_error"
	KindStructureDivergence Kind = "structure_divergence"
	KindUpstream            Kind = "upstream_error"
	KindMalformedInput      Kind = "malformed_input"
	KindInternal            Kind = "internal"
)

// Error is a classified failure. FormData carries the canonical document a
// rejected turn left in place, if any.
type Error struct {
	Kind       Kind
	Message    string
	Violations []form.Violation
	Divergence *form.StructureDivergenceError
	FormData   string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithFormData returns a copy of e carrying doc as the retained document.
func (e *Error) WithFormData(doc string) *Error {
	cp := *e
	cp.FormData = doc
	return &cp
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }
func MalformedInput(format string, args ...any) *Error {
	return newf(KindMalformedInput, format, args...)
}

// Upstream wraps a failed or unusable model call.
func Upstream(err error, format string, args ...any) *Error {
	e := newf(KindUpstream, format, args...)
	e.Err = err
	return e
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// FromForm converts Validator and Merge Engine errors. Other errors are
// returned as internal.
func FromForm(err error) *Error {
	if ve, ok := form.AsValidationError(err); ok {
		return &Error{Kind: KindValidation, Message: ve.Error(), Violations: ve.Violations, Err: err}
	}
	if de, ok := form.AsDivergenceError(err); ok {
		return &Error{Kind: KindStructureDivergence, Message: de.Error(), Divergence: de, Err: err}
	}
	if errors.Is(err, form.ErrNoPriorDocument) {
		return &Error{Kind: KindNotFound, Message: "thread has no form to fill", Err: err}
	}
	return Internal(err)
}

// As unwraps err into an *Error, classifying unknown errors.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if _, ok := form.AsValidationError(err); ok {
		return FromForm(err)
	}
	if _, ok := form.AsDivergenceError(err); ok {
		return FromForm(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Upstream(err, "request cancelled")
	}
	return Internal(err)
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation, KindStructureDivergence:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusBadGateway
	case KindMalformedInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
