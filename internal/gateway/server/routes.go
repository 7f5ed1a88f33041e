package server

import (
	"log"
	"net/http"

	"fastform/internal/gateway/handler"
	"fastform/internal/gateway/middleware"
)

// Handlers groups everything NewMux routes to. Docs may be nil.
type Handlers struct {
	Users       *handler.UserHandler
	Annotations *handler.AnnotationHandler
	Chat        *handler.ChatHandler
	Watch       *handler.WatchHandler
	Docs        *handler.DocsHandler
}

func NewMux(h Handlers, allowedOrigins []string, accessLog *log.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/{$}", handler.Root)

	mux.HandleFunc("POST /v1/user", h.Users.Create)
	mux.HandleFunc("GET /v1/user/{user_id}", h.Users.Get)
	mux.HandleFunc("PUT /v1/user/{user_id}", h.Users.Update)
	mux.HandleFunc("DELETE /v1/user/{user_id}", h.Users.Delete)

	mux.HandleFunc("POST /v1/annotation", h.Annotations.Create)
	mux.HandleFunc("GET /v1/annotation", h.Annotations.List)
	mux.HandleFunc("GET /v1/annotation/{annotation_id}", h.Annotations.Get)
	mux.HandleFunc("PUT /v1/annotation/{annotation_id}", h.Annotations.Update)
	mux.HandleFunc("DELETE /v1/annotation/{annotation_id}", h.Annotations.Delete)

	mux.HandleFunc("POST /v1/fastformbuild/chat", h.Chat.Build)
	mux.HandleFunc("GET /v1/fastformbuild/threads/{user_id}", h.Chat.BuildThreads)
	mux.HandleFunc("GET /v1/fastformbuild/threads/{thread_id}/history", h.Chat.History)
	mux.HandleFunc("POST /v1/fastfill/chat", h.Chat.Fill)
	mux.HandleFunc("GET /v1/fastfill/threads/{user_id}", h.Chat.FillThreads)
	mux.HandleFunc("GET /v1/fastfill/threads/{thread_id}/history", h.Chat.History)

	if h.Watch != nil {
		mux.Handle("GET /v1/threads/{thread_id}/watch", h.Watch)
	}
	if h.Docs != nil {
		mux.Handle("GET /openapi.json", h.Docs)
	}

	return middleware.AccessLog(accessLog)(middleware.CORS(allowedOrigins)(mux))
}
