package consumer

import (
	"log/slog"

	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
)

// Notifier delivers server-originated notification events to a user's
// channel or the shared public channel. It is the entry point the REST API
// and other in-process callers use to reach notification consumers.
type Notifier struct {
	hub *hub.Hub
}

// NewNotifier creates a notifier backed by the given registry.
func NewNotifier(h *hub.Hub) *Notifier {
	return &Notifier{hub: h}
}

// Notify broadcasts a notification to the channel keyed by userKey (or the
// public channel when empty) and returns how many connections were
// subscribed at delivery time.
func (n *Notifier) Notify(userKey, title, message, priority string) (int, error) {
	group := NotificationGroup(userKey)

	payload, err := Event{
		Kind:     KindNotification,
		Title:    title,
		Message:  message,
		Priority: priority,
	}.Encode()
	if err != nil {
		return 0, err
	}

	recipients := n.hub.Count(group)
	n.hub.Broadcast(group, payload, nil)

	slog.Info("notification delivered", "group", group, "recipients", recipients, "priority", priority)
	return recipients, nil
}
