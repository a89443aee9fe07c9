package consumer

import (
	"log/slog"

	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
)

// sendError replies to the origin connection only. Delivery failures here
// mean the origin is already gone; cleanup happens on its read path.
func sendError(s hub.Session, message string) {
	payload, err := Event{Kind: KindError, Message: message}.Encode()
	if err != nil {
		slog.Error("failed to encode error event", "connID", s.ID(), "error", err)
		return
	}
	if err := s.Send(payload); err != nil {
		slog.Debug("could not deliver error event", "connID", s.ID(), "error", err)
	}
}

// broadcastEvent encodes the event once and fans it out to the group.
func broadcastEvent(h *hub.Hub, group string, e Event, exclude hub.Session) {
	payload, err := e.Encode()
	if err != nil {
		slog.Error("failed to encode broadcast event", "group", group, "error", err)
		return
	}
	h.Broadcast(group, payload, exclude)
}

// recoverToError is the consumer boundary for unexpected failures during
// message handling: the panic is logged and the origin gets a generic error
// event instead of losing its connection.
func recoverToError(s hub.Session) {
	if r := recover(); r != nil {
		slog.Error("recovered from panic in message handler", "connID", s.ID(), "panic", r)
		sendError(s, "Server error occurred")
	}
}
