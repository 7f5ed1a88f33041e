package page

import (
	"context"
	"errors"
	"strings"
)

// Store keeps uploaded page images, keyed by thread and file name.
type Store interface {
	Put(ctx context.Context, threadID, name string, content []byte) error
	Get(ctx context.Context, threadID, name string) ([]byte, error)
	List(ctx context.Context, threadID string) ([]string, error)
}

var ErrNotFound = errors.New("page not found")

func objectKey(threadID, name string) string {
	return strings.TrimSpace(threadID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}
