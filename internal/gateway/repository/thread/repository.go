package thread

import (
	"strings"

	"fastform/internal/conversation"
)

// Store persists conversation threads.
type Store = conversation.Store

func normalizeThreadID(raw string) string {
	return strings.TrimSpace(raw)
}

func clonePages(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
