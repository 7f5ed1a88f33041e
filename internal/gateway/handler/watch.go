package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fastform/internal/conversation"
)

const (
	watchWSWriteWait = 10 * time.Second
	watchWSPongWait  = 60 * time.Second
	watchWSPingEvery = (watchWSPongWait * 9) / 10
)

// EventSource hands out per-thread turn event subscriptions.
type EventSource interface {
	Subscribe(threadID string, size int) (<-chan conversation.Event, func())
}

type WatchHandler struct {
	events   EventSource
	upgrader websocket.Upgrader
}

// NewWatchHandler accepts websocket upgrades from allowedOrigins. An empty
// list or "*" accepts any origin.
func NewWatchHandler(events EventSource, allowedOrigins []string) *WatchHandler {
	return &WatchHandler{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

type watchOutbound struct {
	Type      string `json:"type"`
	ThreadID  string `json:"thread_id,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
	FormData  string `json:"form_data,omitempty"`
	At        string `json:"at,omitempty"`
}

type watchInbound struct {
	Type string `json:"type"`
}

// ServeHTTP streams turn events of {thread_id} until the client goes away.
// Clients may send {"type":"ping"} and get {"type":"pong"} back.
func (h *WatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.PathValue("thread_id"))
	if threadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(watchWSPongWait)); err != nil {
		log.Printf("watch ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchWSPongWait))
	})

	events, unsubscribe := h.events.Subscribe(threadID, 32)
	defer unsubscribe()

	writeCh := make(chan watchOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(watchWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(outboundOf(ev)); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	pushWatch(writeCh, watchOutbound{Type: "subscribed", ThreadID: threadID})

	for {
		var in watchInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushWatch(writeCh, watchOutbound{Type: "pong"})
		default:
			pushWatch(writeCh, watchOutbound{Type: "error", Kind: "malformed_input", Message: "unsupported type: " + in.Type})
		}
	}
}

func outboundOf(ev conversation.Event) watchOutbound {
	out := watchOutbound{
		Type:      string(ev.Type),
		ThreadID:  ev.ThreadID,
		MessageID: ev.MessageID,
		Kind:      ev.Kind,
		Message:   ev.Message,
		FormData:  ev.FormData,
	}
	if !ev.At.IsZero() {
		out.At = ev.At.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// pushWatch drops the oldest queued message when the client is slow.
func pushWatch(writeCh chan watchOutbound, out watchOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}

func originAllowed(allowed []string, origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
