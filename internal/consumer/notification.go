package consumer

import (
	"log/slog"

	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
)

const notificationGroupPrefix = "notifications_"

// PublicNotificationKey is the shared fallback channel for connections that
// present no identifying query string.
const PublicNotificationKey = "public"

// NotificationGroup derives the broadcast group key for a notification
// channel from the raw handshake query string, falling back to the shared
// public channel when it is empty.
//
// The key is deliberately derived from the unauthenticated query value
// rather than the identity the auth binder resolved: any client that
// supplies another user's identifier subscribes to that user's channel.
// This matches the deployed protocol and the addressing used by the
// send-notification API; changing it would strand existing clients.
func NotificationGroup(key string) string {
	if key == "" {
		key = PublicNotificationKey
	}
	return notificationGroupPrefix + key
}

// Notification pushes server-originated alerts to one connection. Inbound
// frames on this channel carry no meaning and are ignored.
type Notification struct {
	hub   *hub.Hub
	group string
	state state
}

// NewNotification creates the consumer for a single connection, keyed by
// the raw handshake query string.
func NewNotification(h *hub.Hub, rawQuery string) *Notification {
	return &Notification{
		hub:   h,
		group: NotificationGroup(rawQuery),
	}
}

// Join registers the connection and acknowledges it directly; the
// acknowledgment is not broadcast to the rest of the channel.
func (n *Notification) Join(s hub.Session) error {
	if err := n.hub.Join(n.group, s); err != nil {
		return err
	}
	n.state = stateJoined

	payload, err := Event{Kind: KindConnectionStatus, Message: "Successfully connected to notifications"}.Encode()
	if err != nil {
		return err
	}
	if err := s.Send(payload); err != nil {
		return err
	}

	slog.Info("notification consumer connected", "connID", s.ID(), "group", n.group)
	return nil
}

// Receive ignores inbound payloads; notification channels are push-only.
func (n *Notification) Receive(s hub.Session, data []byte) {
	slog.Debug("ignoring inbound payload on notification channel", "connID", s.ID(), "bytes", len(data))
}

// Leave removes the connection. No departure broadcast is sent, and a
// second Leave is a no-op.
func (n *Notification) Leave(s hub.Session) {
	if n.state != stateJoined {
		return
	}
	n.hub.Leave(n.group, s)
	n.state = stateDisconnected
	slog.Info("notification consumer disconnected", "connID", s.ID(), "group", n.group)
}
