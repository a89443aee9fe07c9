package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/DSwithSiam/demo-websocket-project/internal/hub"
	"github.com/DSwithSiam/demo-websocket-project/internal/store"
)

// maxChatMessageChars bounds the length of a relayed chat message,
// counted in characters.
const maxChatMessageChars = 1000

const roomGroupPrefix = "chat_"

type state int

const (
	stateDisconnected state = iota
	stateJoining
	stateJoined
	stateLeaving
)

// RoomGroup derives the broadcast group key for a chat room.
func RoomGroup(roomName string) string {
	return roomGroupPrefix + roomName
}

type chatInbound struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// Room relays chat messages between every connection joined to one room and
// emits join/leave notices. One instance serves one connection.
type Room struct {
	hub      *hub.Hub
	messages store.MessageStore
	room     string
	group    string
	state    state
}

// NewRoom creates the consumer for a single connection to the named room.
// The message store may be nil, in which case history is not recorded.
func NewRoom(h *hub.Hub, messages store.MessageStore, roomName string) *Room {
	return &Room{
		hub:      h,
		messages: messages,
		room:     roomName,
		group:    RoomGroup(roomName),
	}
}

// Join registers the connection in the room's group and announces the join
// to the whole group. The joining connection receives the notice too; the
// protocol does not distinguish self from others in join announcements.
func (r *Room) Join(s hub.Session) error {
	r.state = stateJoining
	if err := r.hub.Join(r.group, s); err != nil {
		r.state = stateDisconnected
		return err
	}
	r.state = stateJoined

	broadcastEvent(r.hub, r.group, Event{Kind: KindUserJoined, Message: "A user joined the room"}, nil)
	return nil
}

// Receive validates one inbound chat payload and broadcasts it to the room,
// origin included, so the sender sees its own echo via the broadcast.
// Invalid payloads produce an error event to the origin only; the
// connection stays open and joined.
func (r *Room) Receive(s hub.Session, data []byte) {
	defer recoverToError(s)

	var in chatInbound
	if err := json.Unmarshal(data, &in); err != nil {
		slog.Debug("undecodable chat payload", "connID", s.ID(), "room", r.room, "error", err)
		sendError(s, "Invalid JSON format")
		return
	}

	if in.Message == "" || utf8.RuneCountInString(in.Message) > maxChatMessageChars {
		sendError(s, "Invalid message")
		return
	}

	username := in.Username
	if username == "" {
		username = "Anonymous"
	}

	broadcastEvent(r.hub, r.group, Event{
		Kind:     KindChatMessage,
		Message:  in.Message,
		Username: username,
	}, nil)

	if r.messages != nil {
		r.persist(s, username, in.Message)
	}

	slog.Debug("chat message relayed", "connID", s.ID(), "room", r.room, "username", username)
}

// Leave announces the departure to the group before removing the
// connection, matching the notify-then-discard ordering clients expect.
// Only a joined connection departs; a second Leave is a no-op and never
// rebroadcasts user_left.
func (r *Room) Leave(s hub.Session) {
	if r.state != stateJoined {
		return
	}
	r.state = stateLeaving
	broadcastEvent(r.hub, r.group, Event{Kind: KindUserLeft, Message: "A user left the room"}, nil)
	r.hub.Leave(r.group, s)
	r.state = stateDisconnected
}

// persist records the message for the history API. Failures are logged and
// never affect delivery.
func (r *Room) persist(s hub.Session, username, message string) {
	msg := store.Message{
		RoomName:  r.room,
		UserID:    s.Identity().ID,
		UserEmail: s.Identity().Email,
		Username:  username,
		Text:      message,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.messages.SaveMessage(ctx, msg); err != nil {
			slog.Error("failed to persist chat message", "room", r.room, "error", err)
		}
	}()
}
