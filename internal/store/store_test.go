package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, s *MemoryStore, room string, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		require.NoError(t, s.SaveMessage(context.Background(), Message{
			RoomName:  room,
			Username:  "ada",
			Text:      fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestMemoryStore_SaveRequiresRoomName(t *testing.T) {
	s := NewMemoryStore()
	err := s.SaveMessage(context.Background(), Message{Text: "orphan"})
	assert.ErrorIs(t, err, ErrRoomNameRequired)
}

func TestMemoryStore_HistoryPagination(t *testing.T) {
	s := NewMemoryStore()
	seedMessages(t, s, "general", 5)

	// Newest first.
	page, total, err := s.History(context.Background(), "general", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "message 4", page[0].Text)
	assert.Equal(t, "message 3", page[1].Text)

	// Second page.
	page, _, err = s.History(context.Background(), "general", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "message 2", page[0].Text)

	// Offset past the end.
	page, total, err = s.History(context.Background(), "general", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, page)

	// Unknown room.
	page, total, err = s.History(context.Background(), "ghost", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestMemoryStore_Rooms(t *testing.T) {
	s := NewMemoryStore()
	seedMessages(t, s, "general", 3)
	seedMessages(t, s, "dev", 1)

	rooms, err := s.Rooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "dev", rooms[0].RoomName)
	assert.Equal(t, 1, rooms[0].MessageCount)
	assert.Equal(t, "general", rooms[1].RoomName)
	assert.Equal(t, 3, rooms[1].MessageCount)
	require.NotNil(t, rooms[1].LastMessageTime)
}

func TestMemoryStore_CreateRoom(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.CreateRoom(context.Background(), "new-room", ""))

	messages, total, err := s.History(context.Background(), "new-room", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Room created", messages[0].Text)
	assert.Equal(t, "system", messages[0].Username)

	assert.ErrorIs(t, s.CreateRoom(context.Background(), "", "hi"), ErrRoomNameRequired)
}

func TestMemoryStore_DeleteHistory(t *testing.T) {
	s := NewMemoryStore()
	seedMessages(t, s, "general", 4)

	deleted, err := s.DeleteHistory(context.Background(), "general")
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	_, total, err := s.History(context.Background(), "general", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	// Deleting an empty room reports zero, not an error.
	deleted, err = s.DeleteHistory(context.Background(), "general")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
