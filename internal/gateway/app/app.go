// Package app wires configuration, stores, services and HTTP handlers into
// a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"fastform/internal/conversation"
	"fastform/internal/gateway/config"
	"fastform/internal/gateway/handler"
	"fastform/internal/gateway/server"
	annotationsvc "fastform/internal/gateway/service/annotation"
	chatsvc "fastform/internal/gateway/service/chat"
	usersvc "fastform/internal/gateway/service/user"
	"fastform/internal/llm"
	"fastform/internal/logging"
)

type App struct {
	server  *server.Server
	handler http.Handler
	stores  *gatewayStores
	llm     llm.Client
}

// Options overrides parts of the loaded config. LLM, when set, replaces the
// configured provider.
type Options struct {
	Port string
	LLM  llm.Client
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
	}

	stores, err := initStores(cfg)
	if err != nil {
		return nil, err
	}
	client := opts.LLM
	if client == nil {
		if client, err = newLLMClient(ctx, cfg.LLM); err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("failed to init llm client: %w", err)
		}
	}

	// Services
	userSvc := usersvc.New(stores.users)
	annotationSvc := annotationsvc.New(stores.annotations, userSvc)
	events := conversation.NewEventBroker()
	chatSvc := chatsvc.New(chatsvc.Deps{
		State:       conversation.New(stores.threads, events, cfg.Form.MaxDepth),
		Users:       userSvc,
		Annotations: stores.annotations,
		Pages:       stores.pages,
		LLM:         client,
	}, chatsvc.Config{
		MaxDepth:     cfg.Form.MaxDepth,
		HistoryLimit: cfg.Form.HistoryLimit,
		LLMTimeout:   cfg.LLM.Timeout,
	})

	// Handlers
	h := server.Handlers{
		Users:       handler.NewUserHandler(userSvc),
		Annotations: handler.NewAnnotationHandler(annotationSvc),
		Chat:        handler.NewChatHandler(chatSvc),
		Watch:       handler.NewWatchHandler(events, cfg.AllowedOrigins),
	}
	if cfg.DocsEnabled {
		docs, err := handler.NewDocsHandler(ctx, cfg.AppVersion)
		if err != nil {
			_ = stores.Close()
			return nil, err
		}
		h.Docs = docs
	}
	logging.Debugf("app: env=%s docs=%t origins=%v max_depth=%d history=%d",
		cfg.Env, cfg.DocsEnabled, cfg.AllowedOrigins, cfg.Form.MaxDepth, cfg.Form.HistoryLimit)

	// Routing & Server
	mux := server.NewMux(h, cfg.AllowedOrigins, nil)
	return &App{
		server:  server.New(cfg.Port, mux),
		handler: mux,
		stores:  stores,
		llm:     client,
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.llm.Close(); cerr != nil {
		log.Printf("app: close llm client: %v", cerr)
	}
	return errors.Join(err, a.stores.Close())
}
