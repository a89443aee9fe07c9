// Package store persists chat message history and room metadata. The
// broadcast core treats it as an external collaborator: delivery never
// depends on a write succeeding.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrRoomNameRequired is returned when a room operation is missing its name.
var ErrRoomNameRequired = errors.New("store: room_name is required")

// Message is one persisted chat message.
type Message struct {
	ID        int64
	RoomName  string
	UserID    string
	UserEmail string
	Username  string
	Text      string
	Timestamp time.Time
}

// RoomInfo summarizes one room for the listing API.
type RoomInfo struct {
	RoomName        string
	MessageCount    int
	LastMessageTime *time.Time
}

// MessageStore reads and writes chat history.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg Message) error
	// History returns up to limit messages for the room starting at offset,
	// newest first, along with the total number of stored messages.
	History(ctx context.Context, roomName string, limit, offset int) ([]Message, int, error)
	Rooms(ctx context.Context) ([]RoomInfo, error)
	CreateRoom(ctx context.Context, roomName, initialMessage string) error
	// DeleteHistory removes every message in the room and reports how many
	// were deleted.
	DeleteHistory(ctx context.Context, roomName string) (int64, error)
}

// MemoryStore is an in-memory MessageStore for tests and database-less
// runs. Reads copy out so callers never observe concurrent mutation.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Message
	nextID   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]Message),
		nextID:   1,
	}
}

// SaveMessage appends the message to its room's history.
func (s *MemoryStore) SaveMessage(_ context.Context, msg Message) error {
	if msg.RoomName == "" {
		return ErrRoomNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = s.nextID
	s.nextID++
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages[msg.RoomName] = append(s.messages[msg.RoomName], msg)
	return nil
}

// History returns a page of the room's messages, newest first.
func (s *MemoryStore) History(_ context.Context, roomName string, limit, offset int) ([]Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[roomName]
	total := len(all)

	newestFirst := make([]Message, total)
	copy(newestFirst, all)
	sort.SliceStable(newestFirst, func(i, j int) bool {
		return newestFirst[i].Timestamp.After(newestFirst[j].Timestamp)
	})

	if offset >= total {
		return []Message{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]Message, end-offset)
	copy(page, newestFirst[offset:end])
	return page, total, nil
}

// Rooms lists every room that has at least one message.
func (s *MemoryStore) Rooms(_ context.Context) ([]RoomInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]RoomInfo, 0, len(s.messages))
	for name, msgs := range s.messages {
		info := RoomInfo{RoomName: name, MessageCount: len(msgs)}
		for i := range msgs {
			if info.LastMessageTime == nil || msgs[i].Timestamp.After(*info.LastMessageTime) {
				ts := msgs[i].Timestamp
				info.LastMessageTime = &ts
			}
		}
		rooms = append(rooms, info)
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomName < rooms[j].RoomName })
	return rooms, nil
}

// CreateRoom seeds the room with an initial system message.
func (s *MemoryStore) CreateRoom(ctx context.Context, roomName, initialMessage string) error {
	if roomName == "" {
		return ErrRoomNameRequired
	}
	if initialMessage == "" {
		initialMessage = "Room created"
	}
	return s.SaveMessage(ctx, Message{
		RoomName:  roomName,
		Username:  "system",
		Text:      initialMessage,
		Timestamp: time.Now(),
	})
}

// DeleteHistory removes the room's messages.
func (s *MemoryStore) DeleteHistory(_ context.Context, roomName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := int64(len(s.messages[roomName]))
	delete(s.messages, roomName)
	return deleted, nil
}
