package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fastform/internal/gateway/config"
	"fastform/internal/gateway/handler"
	"fastform/internal/llm"
)

const personForm = `{"title":"Person","description":"Basic details","elements":[` +
	`{"title":"Name","description":"Full name","value":null}]}`

func newTestApp(t *testing.T, model llm.Client) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Port:        ":0",
		Env:         "test",
		AppVersion:  "v1",
		DocsEnabled: true,
		LLM:         config.LLMConfig{Provider: config.ProviderFake},
	}
	a, err := New(context.Background(), cfg, Options{LLM: model})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEveryDocumentedRouteIsServed(t *testing.T) {
	h := newTestApp(t, llm.NewScriptedClient())
	docs, err := handler.NewDocsHandler(context.Background(), "")
	require.NoError(t, err)

	for _, op := range docs.Operations() {
		method, path, _ := strings.Cut(op, " ")
		if strings.HasSuffix(path, "/watch") {
			continue
		}
		path = strings.NewReplacer("{user_id}", "nobody", "{annotation_id}", "999", "{thread_id}", "none").Replace(path)
		rec := do(t, h, method, path, "")
		require.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, op)
		if rec.Code == http.StatusNotFound {
			// A routed 404 is a JSON envelope, the mux's own is plain text.
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"), op)
		}
	}
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/openapi.json", "").Code)
}

func TestUserAndAnnotationLifecycle(t *testing.T) {
	h := newTestApp(t, llm.NewScriptedClient())

	rec := do(t, h, http.MethodPost, "/v1/user", `{"id":"u1","email":"u1@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/v1/user", `{"id":"u1","email":"u1@example.com"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/user", `{"id":"u2","email":"nope"}`).Code)

	rec = do(t, h, http.MethodPut, "/v1/user/u1", `{"email":"new@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "new@example.com")

	body, _ := json.Marshal(map[string]any{"name": "person", "user_id": "u1", "structure": personForm})
	rec = do(t, h, http.MethodPost, "/v1/annotation", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct{ ID int64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/v1/annotation/%d", created.ID)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, path, "").Code)
	rec = do(t, h, http.MethodPut, path, `{"name":"renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "renamed")

	rec = do(t, h, http.MethodGet, "/v1/annotation?user_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/annotation", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/annotation/abc", "").Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, path, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, "").Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/user/u1", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/user/u1", "").Code)
}

func TestChatOverHTTP(t *testing.T) {
	model := llm.NewScriptedClient().
		Reply(`{"action":"form","form":` + personForm + `,"message":"Created."}`).
		Reply(`{"action":"form","form":{"title":"Person","description":"Basic details","elements":[` +
			`{"title":"Name","description":"Full name","value":"Ada"}]},"message":"Filled."}`).
		Reply(`{"action":"form","form":{"title":"Person","description":"Basic details","elements":[` +
			`{"title":"Name","description":"Full name","value":"Ada"},{"title":"Age","description":"Years","value":3}]}}`)
	h := newTestApp(t, model)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/v1/user", `{"id":"u1","email":"u1@example.com"}`).Code)

	rec := do(t, h, http.MethodPost, "/v1/fastformbuild/chat", `{"thread_id":"b1","user_id":"u1","content":"a name form"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		ThreadID string `json:"thread_id"`
		FormData string `json:"form_data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "b1", res.ThreadID)
	require.Contains(t, res.FormData, `"Name"`)

	body, _ := json.Marshal(map[string]any{"name": "person", "user_id": "u1", "structure": res.FormData})
	rec = do(t, h, http.MethodPost, "/v1/annotation", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ann struct{ ID int64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ann))

	fill := fmt.Sprintf(`{"thread_id":"f1","user_id":"u1","content":"I am Ada","load_annotation_id":%d}`, ann.ID)
	rec = do(t, h, http.MethodPost, "/v1/fastfill/chat", fill)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "Ada")

	rec = do(t, h, http.MethodPost, "/v1/fastfill/chat", `{"thread_id":"f1","user_id":"u1","content":"add my age"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"kind":"structure_divergence"`)

	rec = do(t, h, http.MethodGet, "/v1/fastformbuild/threads/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `["b1"]`, rec.Body.String())
	rec = do(t, h, http.MethodGet, "/v1/fastfill/threads/u1", "")
	require.JSONEq(t, `["f1"]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/fastfill/threads/f1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 3)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/fastfill/threads/nope/history", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/fastformbuild/chat", `{"thread_id":"b2","user_id":"u1"}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/v1/fastformbuild/chat", `{"thread_id":"b3","user_id":"ghost","content":"x"}`).Code)
}
