package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
	"github.com/DSwithSiam/demo-websocket-project/internal/consumer"
	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
	"github.com/DSwithSiam/demo-websocket-project/internal/store"
)

const (
	defaultHistoryLimit = 50
)

// API serves the REST endpoints around the broadcast core: room listing,
// message history, and server-originated notifications.
type API struct {
	hub       *hub.Hub
	messages  store.MessageStore
	notifier  *consumer.Notifier
	validator auth.Validator
}

// NewAPI creates the REST API handlers.
func NewAPI(h *hub.Hub, messages store.MessageStore, notifier *consumer.Notifier, validator auth.Validator) *API {
	return &API{
		hub:       h,
		messages:  messages,
		notifier:  notifier,
		validator: validator,
	}
}

type roomResponse struct {
	RoomName        string  `json:"room_name"`
	MessageCount    int     `json:"message_count"`
	LastMessageTime *string `json:"last_message_time"`
}

// ListRooms returns every room with message counts and last activity.
func (a *API) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.messages.Rooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp := roomResponse{
			RoomName:     room.RoomName,
			MessageCount: room.MessageCount,
		}
		if room.LastMessageTime != nil {
			ts := room.LastMessageTime.Format(time.RFC3339)
			resp.LastMessageTime = &ts
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"rooms": out,
	})
}

// CreateRoom creates a chat room with an optional initial message.
func (a *API) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomName       string `json:"room_name"`
		InitialMessage string `json:"initial_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.RoomName == "" {
		writeError(w, http.StatusBadRequest, "room_name is required")
		return
	}

	if err := a.messages.CreateRoom(r.Context(), body.RoomName, body.InitialMessage); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Room created successfully",
		"room":    map[string]string{"room_name": body.RoomName},
	})
}

type historyMessage struct {
	ID        int64   `json:"id"`
	UserID    *string `json:"user_id"`
	UserEmail *string `json:"user_email"`
	Username  string  `json:"username"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// History returns a paginated slice of a room's message history.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "room_name")

	limit := queryInt(r, "limit", defaultHistoryLimit)
	offset := queryInt(r, "offset", 0)

	messages, total, err := a.messages.History(r.Context(), roomName, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]historyMessage, 0, len(messages))
	for _, m := range messages {
		hm := historyMessage{
			ID:        m.ID,
			Username:  m.Username,
			Message:   m.Text,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		}
		if m.UserID != "" {
			id := m.UserID
			hm.UserID = &id
		}
		if m.UserEmail != "" {
			email := m.UserEmail
			hm.UserEmail = &email
		}
		out = append(out, hm)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_name": roomName,
		"messages":  out,
		"count":     len(out),
		"total":     total,
	})
}

// DeleteHistory removes every message in a room. Requires an authenticated
// caller; anonymous requests are rejected.
func (a *API) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	identity := auth.BindIdentity(r.Context(), r, a.validator)
	if identity.IsAnonymous() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	roomName := chi.URLParam(r, "room_name")
	deleted, err := a.messages.DeleteHistory(r.Context(), roomName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Successfully deleted " + strconv.FormatInt(deleted, 10) + " messages from " + roomName,
		"deleted_count": deleted,
	})
}

// SendNotification pushes a notification to a user's channel, or to the
// public channel when user_id is empty.
func (a *API) SendNotification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		Title    string `json:"title"`
		Message  string `json:"message"`
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	recipients, err := a.notifier.Notify(body.UserID, body.Title, body.Message, body.Priority)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Notification sent",
		"recipients": recipients,
	})
}

// WebSocketInfo describes how to connect to a room's WebSocket endpoint,
// including the message formats the room consumer speaks.
func (a *API) WebSocketInfo(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "room_name")

	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	path := "/chat/" + roomName + "/"

	writeJSON(w, http.StatusOK, map[string]any{
		"room_name":     roomName,
		"websocket_url": scheme + "://" + r.Host + path,
		"connection_info": map[string]string{
			"protocol": scheme,
			"host":     r.Host,
			"path":     path,
		},
		"message_format": map[string]any{
			"send": map[string]string{
				"message":  "Your message here",
				"username": "your_username",
			},
			"receive": map[string]string{
				"type":      "chat_message",
				"message":   "Message content",
				"username":  "sender_username",
				"timestamp": "ISO format timestamp",
			},
		},
	})
}

// Stats reports live group and connection counts.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	groups, conns := a.hub.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"groups":      groups,
		"connections": conns,
	})
}

// Health is a plain-text liveness probe.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Chat server is running!"))
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
