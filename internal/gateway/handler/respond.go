package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"fastform/internal/apperr"
	"fastform/internal/form"
	"fastform/internal/util/jsonutil"
)

const maxBodyBytes = 32 << 20

func Message(status bool, message string) map[string]any {
	return map[string]any{"status": status, "message": message}
}

func Respond(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	b, err := jsonutil.MarshalNoEscape(data)
	if err != nil {
		log.Printf("handler: encode response: %v", err)
		return
	}
	_, _ = w.Write(append(b, '\n'))
}

type divergenceBody struct {
	Path  string   `json:"path"`
	Paths []string `json:"paths,omitempty"`
	Diff  string   `json:"diff,omitempty"`
}

type errorBody struct {
	Status     bool             `json:"status"`
	Kind       apperr.Kind      `json:"kind"`
	Message    string           `json:"message"`
	Violations []form.Violation `json:"violations,omitempty"`
	Divergence *divergenceBody  `json:"divergence,omitempty"`
	FormData   string           `json:"form_data,omitempty"`
}

// RespondError writes the error envelope with the status of err's kind.
func RespondError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	if e == nil {
		e = apperr.Internal(errors.New("unknown error"))
	}
	body := errorBody{
		Kind:       e.Kind,
		Message:    e.Message,
		Violations: e.Violations,
		FormData:   e.FormData,
	}
	if e.Kind == apperr.KindInternal {
		log.Printf("handler: internal error: %v", e)
		body.Message = "internal error"
	}
	if d := e.Divergence; d != nil {
		body.Divergence = &divergenceBody{Path: d.Path, Paths: d.Paths, Diff: d.Diff}
	}
	Respond(w, body, apperr.HTTPStatus(e.Kind))
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.MalformedInput("request body is empty")
		}
		return apperr.MalformedInput("invalid JSON body: %v", err)
	}
	if dec.More() {
		return apperr.MalformedInput("request body must hold a single JSON object")
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.MalformedInput("%s must be an integer, got %q", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.MalformedInput("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}
