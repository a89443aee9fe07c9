package consumer

import (
	"encoding/json"
	"log/slog"

	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
)

// CounterGroup is the single global group shared by every counter
// connection; there is no per-room key.
const CounterGroup = "global_counter"

type counterInbound struct {
	Action *string  `json:"action"`
	Value  *float64 `json:"value"`
}

// Counter relays increment/decrement/reset actions across the global group.
// The server holds no counter state: actions and values pass through
// verbatim and accumulation, if any, is entirely client-side.
type Counter struct {
	hub   *hub.Hub
	state state
}

// NewCounter creates the consumer for a single connection.
func NewCounter(h *hub.Hub) *Counter {
	return &Counter{hub: h}
}

// Join registers the connection, sends it an initial counter value of zero,
// then broadcasts a user count update to the whole group. The count is the
// literal constant 1 per join, not the live member count; clients treat it
// as a delta.
func (ct *Counter) Join(s hub.Session) error {
	if err := ct.hub.Join(CounterGroup, s); err != nil {
		return err
	}
	ct.state = stateJoined

	payload, err := Event{Kind: KindCounterConnected, Counter: 0, Message: "Connected to counter"}.Encode()
	if err != nil {
		return err
	}
	if err := s.Send(payload); err != nil {
		return err
	}

	broadcastEvent(ct.hub, CounterGroup, Event{Kind: KindUserCountUpdate, Count: 1}, nil)
	return nil
}

// Receive parses a counter action and rebroadcasts it to the whole group,
// origin included. Missing fields default to a single increment.
func (ct *Counter) Receive(s hub.Session, data []byte) {
	defer recoverToError(s)

	var in counterInbound
	if err := json.Unmarshal(data, &in); err != nil {
		slog.Debug("undecodable counter payload", "connID", s.ID(), "error", err)
		sendError(s, "Invalid JSON format")
		return
	}

	action := "increment"
	if in.Action != nil {
		action = *in.Action
	}
	value := 1.0
	if in.Value != nil {
		value = *in.Value
	}

	broadcastEvent(ct.hub, CounterGroup, Event{
		Kind:   KindCounterUpdate,
		Action: action,
		Value:  value,
	}, nil)
}

// Leave removes the connection from the global group. No broadcast is sent
// on departure, and a second Leave is a no-op.
func (ct *Counter) Leave(s hub.Session) {
	if ct.state != stateJoined {
		return
	}
	ct.hub.Leave(CounterGroup, s)
	ct.state = stateDisconnected
}
