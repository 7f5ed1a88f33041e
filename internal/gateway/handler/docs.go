package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// DocsHandler serves the API description as JSON.
type DocsHandler struct {
	doc  *openapi3.T
	body []byte
}

// NewDocsHandler loads and validates the embedded description. version,
// when set, overrides info.version.
func NewDocsHandler(ctx context.Context, version string) (*DocsHandler, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	if version != "" {
		doc.Info.Version = version
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi: encode: %w", err)
	}
	return &DocsHandler{doc: doc, body: body}, nil
}

// Operations returns "METHOD path" for every documented operation.
func (h *DocsHandler) Operations() []string {
	var out []string
	for path, item := range h.doc.Paths.Map() {
		for method := range item.Operations() {
			out = append(out, method+" "+path)
		}
	}
	return out
}

func (h *DocsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.body)
}
