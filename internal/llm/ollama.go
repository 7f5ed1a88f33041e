package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// OllamaClient talks to a local or remote Ollama server.
type OllamaClient struct {
	client      *ollama.Client
	model       string
	temperature float64
}

// NewOllamaClient connects to host, or to OLLAMA_HOST when host is empty.
func NewOllamaClient(host, model string) (*OllamaClient, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	var (
		client *ollama.Client
		err    error
	)
	if host = strings.TrimSpace(host); host != "" {
		var base *url.URL
		base, err = url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host: %w", err)
		}
		client = ollama.NewClient(base, http.DefaultClient)
	} else {
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
	}
	return &OllamaClient{client: client, model: model, temperature: 0.2}, nil
}

func (o *OllamaClient) Name() string { return "Ollama:" + o.model }
func (o *OllamaClient) Close() error { return nil }

func (o *OllamaClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	stream := false
	chat := &ollama.ChatRequest{
		Model:    o.model,
		Messages: ollamaMessages(req),
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
		Options:  map[string]interface{}{"temperature": o.temperature},
	}
	var out strings.Builder
	err := o.client.Chat(ctx, chat, func(res ollama.ChatResponse) error {
		out.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests {
			return nil, &PermanentError{Err: err}
		}
		return nil, err
	}
	if strings.TrimSpace(out.String()) == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(out.String()), nil
}

func ollamaMessages(req Request) []ollama.Message {
	out := make([]ollama.Message, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		out = append(out, ollama.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		msg := ollama.Message{Role: string(m.Role), Content: m.Text}
		for _, img := range m.Images {
			msg.Images = append(msg.Images, ollama.ImageData(img.Data))
		}
		out = append(out, msg)
	}
	return out
}
