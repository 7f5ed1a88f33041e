// Package llm wraps the model providers used to author and fill forms. A
// call is one request-response exchange: a system prompt plus chat history
// in, JSON text out.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an inline page image attached to a message.
type Image struct {
	MIMEType string
	Data     []byte
}

type Message struct {
	Role   Role
	Text   string
	Images []Image
}

type Request struct {
	System   string
	Messages []Message
}

// Client generates a JSON reply for a chat request.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
	Close() error
}

var (
	ErrEmptyResponse = errors.New("llm: empty response from model")
	ErrInvalidJSON   = errors.New("llm: invalid JSON from model")
)

// PermanentError marks failures that retrying cannot fix, such as a
// rejected API key.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

type ctxKeyPhase struct{}

// WithPhase tags ctx with the workflow a call belongs to, for logging.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase stored in ctx.
func PhaseFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyPhase{}).(string); ok {
		return s
	}
	return "unknown"
}

// Func adapts a function to a Client.
type Func func(ctx context.Context, req Request) (json.RawMessage, error)

func (f Func) Name() string { return "func" }
func (f Func) Close() error { return nil }
func (f Func) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// requestSize approximates the payload size of req for logs.
func requestSize(req Request) (text, images int) {
	text = len(req.System)
	for _, m := range req.Messages {
		text += len(m.Text)
		for _, img := range m.Images {
			images += len(img.Data)
		}
	}
	return text, images
}
