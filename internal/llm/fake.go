package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ScriptedClient replays queued replies in order and records every
// request. Used in tests and with LLM_PROVIDER=fake.
type ScriptedClient struct {
	mu       sync.Mutex
	replies  []scripted
	requests []Request
	fallback json.RawMessage
}

type scripted struct {
	raw json.RawMessage
	err error
}

func NewScriptedClient() *ScriptedClient { return &ScriptedClient{} }

// Reply queues a successful JSON reply.
func (c *ScriptedClient) Reply(raw string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, scripted{raw: json.RawMessage(raw)})
	return c
}

// Fail queues an error reply.
func (c *ScriptedClient) Fail(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, scripted{err: err})
	return c
}

// Fallback sets the reply used once the queue is drained.
func (c *ScriptedClient) Fallback(raw string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = json.RawMessage(raw)
	return c
}

func (c *ScriptedClient) Name() string { return "scripted" }
func (c *ScriptedClient) Close() error { return nil }

func (c *ScriptedClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		if c.fallback != nil {
			return c.fallback, nil
		}
		return nil, fmt.Errorf("scripted client: no reply queued")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	return next.raw, next.err
}

// Requests returns a copy of the requests seen so far.
func (c *ScriptedClient) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.requests...)
}
