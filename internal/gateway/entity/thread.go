package entity

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Workflow names the chat surface a message was sent through.
type Workflow string

const (
	WorkflowBuild Workflow = "fastformbuild"
	WorkflowFill  Workflow = "fastfill"
)

// Message is one entry of a thread's history. Pages lists page-store keys
// of images attached to a user message. FormData holds the serialized
// canonical document an assistant message committed, if any.
type Message struct {
	ID        int64     `json:"id"`
	ThreadID  string    `json:"thread_id"`
	UserID    UserID    `json:"user_id"`
	Role      Role      `json:"role"`
	Workflow  Workflow  `json:"workflow"`
	Text      string    `json:"text"`
	Pages     []string  `json:"pages,omitempty"`
	FormData  string    `json:"form_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is a conversation and its canonical form document. Document is the
// serialized form, empty until a turn first commits one.
type Thread struct {
	ID        string    `json:"thread_id"`
	UserID    UserID    `json:"user_id"`
	Document  string    `json:"document,omitempty"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
