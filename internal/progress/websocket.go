package progress

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
)

// WebSocketHandler upgrades HTTP requests to progress-event streams.
type WebSocketHandler struct {
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a handler serving the hub's events.
func NewWebSocketHandler(hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade. Clients pass the
// process id to follow as ?process_id=; the connection receives buffered
// events first, then live ones until the client disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	processID := r.URL.Query().Get("process_id")
	if processID == "" {
		http.Error(w, "process_id is required", http.StatusBadRequest)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "process_id", processID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "process_id", processID)
		}
	}()

	h.hub.Subscribe(processID, ws)
	defer h.hub.Unsubscribe(processID, ws)

	// Drain client messages until the connection drops. Subscribers are
	// read-only; anything they send is discarded.
	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigin == "" || strings.HasPrefix(origin, h.allowedOrigin)
}
