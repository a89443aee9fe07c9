package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
)

func TestNotificationGroup(t *testing.T) {
	assert.Equal(t, "notifications_42", NotificationGroup("42"))
	assert.Equal(t, "notifications_public", NotificationGroup(""))
}

func TestNotification_JoinAcknowledgesDirectly(t *testing.T) {
	h := hub.NewHub()

	first := NewNotification(h, "42")
	s1 := newMockSession("one")
	require.NoError(t, first.Join(s1))

	ack := s1.lastEvent(t)
	assert.Equal(t, "connection_status", ack["type"])
	assert.Equal(t, "connected", ack["status"])
	assert.Equal(t, "Successfully connected to notifications", ack["message"])

	// A second subscriber's ack is not broadcast to the first.
	s1.reset()
	second := NewNotification(h, "42")
	s2 := newMockSession("two")
	require.NoError(t, second.Join(s2))

	assert.Empty(t, s1.events(t))
	assert.Equal(t, "connection_status", s2.lastEvent(t)["type"])
}

func TestNotification_EmptyQueryJoinsPublicGroup(t *testing.T) {
	h := hub.NewHub()
	n := NewNotification(h, "")
	s := newMockSession("anon")
	require.NoError(t, n.Join(s))

	assert.Equal(t, 1, h.Count(NotificationGroup("")))
}

func TestNotification_InboundIgnored(t *testing.T) {
	h := hub.NewHub()
	n := NewNotification(h, "42")
	s := newMockSession("one")
	require.NoError(t, n.Join(s))
	s.reset()

	n.Receive(s, []byte(`{"message":"anything"}`))
	n.Receive(s, []byte("not even json"))

	assert.Empty(t, s.events(t))
}

func TestNotification_LeaveIsSilent(t *testing.T) {
	h := hub.NewHub()
	n := NewNotification(h, "42")
	s := newMockSession("one")
	require.NoError(t, n.Join(s))

	other := NewNotification(h, "42")
	so := newMockSession("two")
	require.NoError(t, other.Join(so))
	so.reset()

	n.Leave(s)

	assert.Empty(t, so.events(t))
	assert.Equal(t, 1, h.Count(NotificationGroup("42")))

	// A repeat Leave is a no-op.
	n.Leave(s)
	assert.Equal(t, 1, h.Count(NotificationGroup("42")))
}

func TestNotifier_DeliversToSubscribers(t *testing.T) {
	h := hub.NewHub()
	notifier := NewNotifier(h)

	n := NewNotification(h, "42")
	s := newMockSession("subscriber")
	require.NoError(t, n.Join(s))
	s.reset()

	recipients, err := notifier.Notify("42", "Deploy finished", "All green", "")
	require.NoError(t, err)
	assert.Equal(t, 1, recipients)

	event := s.lastEvent(t)
	assert.Equal(t, "notification", event["type"])
	assert.Equal(t, "Deploy finished", event["title"])
	assert.Equal(t, "All green", event["message"])
	assert.Equal(t, "normal", event["priority"])
}

func TestNotifier_PublicFallbackAndEmptyGroups(t *testing.T) {
	h := hub.NewHub()
	notifier := NewNotifier(h)

	n := NewNotification(h, "")
	s := newMockSession("anon")
	require.NoError(t, n.Join(s))
	s.reset()

	recipients, err := notifier.Notify("", "", "public service announcement", "high")
	require.NoError(t, err)
	assert.Equal(t, 1, recipients)
	assert.Equal(t, "high", s.lastEvent(t)["priority"])

	// Notifying a channel nobody subscribed to is a harmless no-op.
	recipients, err = notifier.Notify("ghost", "t", "m", "")
	require.NoError(t, err)
	assert.Equal(t, 0, recipients)
}
