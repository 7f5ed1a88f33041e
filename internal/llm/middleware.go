package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"
)

// Middleware decorates a Client with a cross-cutting concern.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order:
// Wrap(inner, A, B) => A(B(inner)).
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// RateLimit throttles calls to rps per second. rps <= 0 disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
	stop sync.Once
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.stop.Do(c.rl.Stop)
	return c.next.Close()
}
func (c *rateLimited) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, req)
}

// -------- Timeout --------

// Timeout bounds each call. d <= 0 leaves calls unbounded.
func Timeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }
func (t *timed) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateJSON(ctx, req)
}

// -------- Retry with exponential backoff --------

// Retry retries failed calls up to maxAttempts in total, backing off from
// baseDelay. Permanent errors and a done context stop it immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.GenerateJSON(ctx, req)
		if err == nil {
			return resp, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return nil, last
}

// -------- Logging --------

// WithLogging logs request sizes, latency and errors. A nil logger means
// log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	text, images := requestSize(req)
	phase := PhaseFrom(ctx)
	l.log.Printf("LLM request (%s) via %s: %d messages, %d text bytes, %d image bytes", phase, l.next.Name(), len(req.Messages), text, images)
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s) after %s: %v", phase, time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	l.log.Printf("LLM response (%s) after %s: %d bytes", phase, time.Since(start).Round(time.Millisecond), len(raw))
	return raw, nil
}
