package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/texlink/partnerhub/internal/events"
)

// EventsHandler streams lifecycle transition events over WebSocket
type EventsHandler struct {
	broker         *events.Broker
	logger         *slog.Logger
	allowedOrigins []string
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(broker *events.Broker, logger *slog.Logger, allowedOrigins []string) *EventsHandler {
	return &EventsHandler{
		broker:         broker,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *EventsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/events requests
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ch, cancel := h.broker.Subscribe()
	defer cancel()

	ctx := r.Context()

	// Drain client frames so close handshakes are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
