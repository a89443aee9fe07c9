// Package consumer implements the per-connection state machines bound to
// each WebSocket route: chat rooms, notification channels, and the shared
// counter. All outbound traffic flows through the Event union in this file.
package consumer

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind discriminates the broadcast event union. Delivery is a single
// encode path switching on kind; there is no per-kind handler dispatch.
type EventKind int

const (
	KindChatMessage EventKind = iota
	KindUserJoined
	KindUserLeft
	KindNotification
	KindCounterUpdate
	KindCounterConnected
	KindUserCountUpdate
	KindConnectionStatus
	KindError
)

// Event is an in-flight broadcast message. Only the fields relevant to the
// kind are consulted; everything else is ignored by Encode. Events are
// transient and never persisted.
type Event struct {
	Kind EventKind

	Message  string
	Username string

	Title    string
	Priority string

	Action string
	Value  float64

	Count   int
	Counter int
}

type chatMessagePayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type roomNoticePayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Event   string `json:"event"`
}

type notificationPayload struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Priority  string `json:"priority"`
	Timestamp string `json:"timestamp"`
}

type counterUpdatePayload struct {
	Type      string  `json:"type"`
	Action    string  `json:"action"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

type counterConnectedPayload struct {
	Type    string `json:"type"`
	Counter int    `json:"counter"`
	Message string `json:"message"`
}

type userCountPayload struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type connectionStatusPayload struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Encode serializes the event to its wire shape. Timestamps are generated
// here, server-side, at broadcast time.
func (e Event) Encode() ([]byte, error) {
	switch e.Kind {
	case KindChatMessage:
		return json.Marshal(chatMessagePayload{
			Type:      "chat_message",
			Message:   e.Message,
			Username:  e.Username,
			Timestamp: now(),
		})
	case KindUserJoined:
		return json.Marshal(roomNoticePayload{
			Type:    "notification",
			Message: e.Message,
			Event:   "user_joined",
		})
	case KindUserLeft:
		return json.Marshal(roomNoticePayload{
			Type:    "notification",
			Message: e.Message,
			Event:   "user_left",
		})
	case KindNotification:
		priority := e.Priority
		if priority == "" {
			priority = "normal"
		}
		return json.Marshal(notificationPayload{
			Type:      "notification",
			Title:     e.Title,
			Message:   e.Message,
			Priority:  priority,
			Timestamp: now(),
		})
	case KindCounterUpdate:
		return json.Marshal(counterUpdatePayload{
			Type:      "counter_update",
			Action:    e.Action,
			Value:     e.Value,
			Timestamp: now(),
		})
	case KindCounterConnected:
		return json.Marshal(counterConnectedPayload{
			Type:    "counter_update",
			Counter: e.Counter,
			Message: e.Message,
		})
	case KindUserCountUpdate:
		return json.Marshal(userCountPayload{
			Type:  "user_count_update",
			Count: e.Count,
		})
	case KindConnectionStatus:
		return json.Marshal(connectionStatusPayload{
			Type:      "connection_status",
			Status:    "connected",
			Message:   e.Message,
			Timestamp: now(),
		})
	case KindError:
		return json.Marshal(errorPayload{
			Type:    "error",
			Message: e.Message,
		})
	default:
		return nil, fmt.Errorf("consumer: unknown event kind %d", e.Kind)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
