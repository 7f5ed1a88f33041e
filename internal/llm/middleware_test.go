package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWrapOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Client) Client {
			return Func(func(ctx context.Context, req Request) (json.RawMessage, error) {
				order = append(order, name)
				return next.GenerateJSON(ctx, req)
			})
		}
	}
	inner := Func(func(context.Context, Request) (json.RawMessage, error) {
		order = append(order, "inner")
		return json.RawMessage(`{}`), nil
	})

	_, err := Wrap(inner, tag("a"), tag("b")).GenerateJSON(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "inner"}, order)
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	var calls int32
	inner := Func(func(context.Context, Request) (json.RawMessage, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("transient")
		}
		return json.RawMessage(`{"ok":true}`), nil
	})

	raw, err := Wrap(inner, Retry(3, time.Millisecond)).GenerateJSON(context.Background(), Request{})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(raw))
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var calls int32
	inner := Func(func(context.Context, Request) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &PermanentError{Err: errors.New("bad key")}
	})

	_, err := Wrap(inner, Retry(5, time.Millisecond)).GenerateJSON(context.Background(), Request{})
	var pErr *PermanentError
	require.ErrorAs(t, err, &pErr)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := Func(func(context.Context, Request) (json.RawMessage, error) {
		cancel()
		return nil, errors.New("transient")
	})

	_, err := Wrap(inner, Retry(5, time.Second)).GenerateJSON(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTimeoutBoundsCall(t *testing.T) {
	inner := Func(func(ctx context.Context, _ Request) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := Wrap(inner, Timeout(20*time.Millisecond)).GenerateJSON(context.Background(), Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitBurstThenThrottle(t *testing.T) {
	c := Wrap(Func(func(context.Context, Request) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}), RateLimit(1, 2))
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.GenerateJSON(ctx, Request{})
		require.NoError(t, err)
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := c.GenerateJSON(short, Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLoggingWritesPhaseAndSizes(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	c := Wrap(NewScriptedClient().Reply(`{"a":1}`), WithLogging(logger))

	req := Request{System: "sys", Messages: []Message{{Role: RoleUser, Text: "hi", Images: []Image{{MIMEType: "image/png", Data: []byte{1, 2, 3}}}}}}
	_, err := c.GenerateJSON(WithPhase(context.Background(), "fastfill"), req)
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.Contains(out, "LLM request (fastfill)"), out)
	require.True(t, strings.Contains(out, "5 text bytes, 3 image bytes"), out)
	require.True(t, strings.Contains(out, "LLM response (fastfill)"), out)
}

func TestScriptedClientReplaysInOrder(t *testing.T) {
	c := NewScriptedClient().Reply(`{"n":1}`).Fail(errors.New("boom")).Fallback(`{"n":0}`)
	ctx := context.Background()

	raw, err := c.GenerateJSON(ctx, Request{System: "first"})
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(raw))

	_, err = c.GenerateJSON(ctx, Request{})
	require.EqualError(t, err, "boom")

	raw, err = c.GenerateJSON(ctx, Request{})
	require.NoError(t, err)
	require.JSONEq(t, `{"n":0}`, string(raw))
	require.Len(t, c.Requests(), 3)
	require.Equal(t, "first", c.Requests()[0].System)
}

func TestOllamaMessagesPrependsSystem(t *testing.T) {
	msgs := ollamaMessages(Request{System: "sys", Messages: []Message{
		{Role: RoleUser, Text: "hello", Images: []Image{{Data: []byte("png")}}},
		{Role: RoleAssistant, Text: "{}"},
	}})
	require.Len(t, msgs, 3)
	require.Equal(t, "system", msgs[0].Role)
	require.Equal(t, "user", msgs[1].Role)
	require.Len(t, msgs[1].Images, 1)
	require.Equal(t, "assistant", msgs[2].Role)
}

func TestGeminiContentsMapsRolesAndImages(t *testing.T) {
	contents := geminiContents([]Message{
		{Role: RoleUser, Images: []Image{{MIMEType: "image/png", Data: []byte("p")}}},
		{Role: RoleAssistant, Text: "{}"},
	})
	require.Len(t, contents, 2)
	require.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 1)
	require.NotNil(t, contents[0].Parts[0].InlineData)
	require.Equal(t, "model", contents[1].Role)
	require.Equal(t, "{}", contents[1].Parts[0].Text)
}
