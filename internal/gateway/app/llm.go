package app

import (
	"context"
	"fmt"
	"log"

	"fastform/internal/gateway/config"
	"fastform/internal/llm"
)

const fakeReply = `{"action":"message","message":"LLM_PROVIDER=fake: no model is configured, the form was left unchanged."}`

// newLLMClient builds the configured provider wrapped as
// logging -> retry -> rate limit -> timeout -> provider.
func newLLMClient(ctx context.Context, cfg config.LLMConfig) (llm.Client, error) {
	var inner llm.Client
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		inner = c
	case config.ProviderOllama:
		c, err := llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel)
		if err != nil {
			return nil, err
		}
		inner = c
	case config.ProviderFake:
		inner = llm.NewScriptedClient().Fallback(fakeReply)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	log.Printf("llm: provider=%s retries=%d rps=%.2f timeout=%s", inner.Name(), cfg.Retries, cfg.RPS, cfg.Timeout)

	return llm.Wrap(inner,
		llm.WithLogging(nil),
		llm.Retry(cfg.Retries, 0),
		llm.RateLimit(cfg.RPS, cfg.Burst),
		llm.Timeout(cfg.Timeout),
	), nil
}
