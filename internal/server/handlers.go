package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
	"github.com/DSwithSiam/demo-websocket-project/internal/consumer"
	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
	"github.com/DSwithSiam/demo-websocket-project/internal/store"
)

// Handlers upgrades HTTP requests to WebSocket connections and binds each
// connection to the consumer its route selects.
type Handlers struct {
	hub       *hub.Hub
	validator auth.Validator
	messages  store.MessageStore
	upgrader  websocket.Upgrader
	connCfg   hub.ConnConfig
}

// NewHandlers creates the WebSocket handlers. The validator and message
// store may be nil: connections then resolve to anonymous and history is
// not recorded.
func NewHandlers(h *hub.Hub, cfg *Config, policy *OriginPolicy, validator auth.Validator, messages store.MessageStore) *Handlers {
	refill := cfg.RateLimit.RefillInterval.Seconds()
	if refill <= 0 {
		refill = 1
	}

	return &Handlers{
		hub:       h,
		validator: validator,
		messages:  messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.CheckOrigin,
		},
		connCfg: hub.ConnConfig{
			MaxMessageSize: cfg.MaxMessageSize,
			RateLimit:      rate.Limit(float64(cfg.RateLimit.Burst) / refill),
			RateBurst:      cfg.RateLimit.Burst,
		},
	}
}

// Chat upgrades a connection into the room named by the path parameter.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "room_name")
	h.serve(w, r, func() hub.Consumer {
		return consumer.NewRoom(h.hub, h.messages, roomName)
	})
}

// Notifications upgrades a connection into a notification channel keyed by
// the raw query string, or the public channel when there is none.
func (h *Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	rawQuery := r.URL.RawQuery
	h.serve(w, r, func() hub.Consumer {
		return consumer.NewNotification(h.hub, rawQuery)
	})
}

// Counter upgrades a connection into the global counter group.
func (h *Handlers) Counter(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func() hub.Consumer {
		return consumer.NewCounter(h.hub)
	})
}

// serve resolves the caller's identity, upgrades the transport, and hands
// the connection to the hub. Identity resolution completes before the
// consumer's join logic runs and is never re-evaluated afterwards.
func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, newConsumer func() hub.Consumer) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	identity := auth.BindIdentity(r.Context(), r, h.validator)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the handshake rejection.
		slog.Warn("websocket upgrade failed", "remoteAddr", r.RemoteAddr, "error", err)
		return
	}

	conn := hub.NewConn(ws, r.RemoteAddr, identity, h.connCfg)
	if err := h.hub.Serve(conn, newConsumer()); err != nil {
		slog.Warn("connection rejected", "connID", conn.ID(), "remoteAddr", r.RemoteAddr, "error", err)
	}
}
