package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
)

type mockSession struct {
	id       string
	identity auth.Identity

	mu       sync.Mutex
	received [][]byte
	sendErr  error
}

func newMockSession(id string) *mockSession {
	return &mockSession{id: id}
}

func (m *mockSession) ID() string              { return m.id }
func (m *mockSession) Identity() auth.Identity { return m.identity }

func (m *mockSession) Send(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, payload)
	return nil
}

func (m *mockSession) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.received))
	copy(out, m.received)
	return out
}

func TestHub_JoinAndLeave(t *testing.T) {
	h := NewHub()
	s := newMockSession("a")

	require.NoError(t, h.Join("room", s))
	assert.Equal(t, 1, h.Count("room"))

	h.Leave("room", s)
	assert.Equal(t, 0, h.Count("room"))

	// Leaving twice, or leaving a group that never existed, is a no-op.
	h.Leave("room", s)
	h.Leave("never-created", s)
	assert.Equal(t, 0, h.Count("room"))
}

func TestHub_ConcurrentJoins(t *testing.T) {
	h := NewHub()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, h.Join("room", newMockSession(fmt.Sprintf("conn-%d", i))))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, h.Count("room"))
}

func TestHub_Broadcast(t *testing.T) {
	tests := []struct {
		name    string
		exclude bool
		want    map[string]int
	}{
		{
			name: "delivers to every member including sender",
			want: map[string]int{"a": 1, "b": 1, "c": 1},
		},
		{
			name:    "excluded session is skipped",
			exclude: true,
			want:    map[string]int{"a": 0, "b": 1, "c": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub()
			sessions := map[string]*mockSession{}
			for _, id := range []string{"a", "b", "c"} {
				s := newMockSession(id)
				sessions[id] = s
				require.NoError(t, h.Join("room", s))
			}

			var exclude Session
			if tt.exclude {
				exclude = sessions["a"]
			}
			h.Broadcast("room", []byte(`{"type":"test"}`), exclude)

			for id, count := range tt.want {
				assert.Len(t, sessions[id].getReceived(), count, "session %s", id)
			}
		})
	}
}

func TestHub_BroadcastIsolatesFailedRecipients(t *testing.T) {
	h := NewHub()

	healthy := newMockSession("healthy")
	dead := newMockSession("dead")
	dead.sendErr = errors.New("transport gone")

	require.NoError(t, h.Join("room", healthy))
	require.NoError(t, h.Join("room", dead))

	h.Broadcast("room", []byte("payload"), nil)

	// The healthy member still got the event and the dead one was swept.
	assert.Len(t, healthy.getReceived(), 1)
	assert.Equal(t, 1, h.Count("room"))
}

func TestHub_BroadcastToUnknownGroup(t *testing.T) {
	h := NewHub()
	// Must not panic or create the group.
	h.Broadcast("ghost", []byte("payload"), nil)
	assert.Equal(t, 0, h.Count("ghost"))
}

func TestHub_JoinAfterShutdown(t *testing.T) {
	h := NewHub()
	require.NoError(t, h.Shutdown(0))

	err := h.Join("room", newMockSession("late"))
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestConn_SendAfterShutdown(t *testing.T) {
	c := NewConn(nil, "127.0.0.1:1234", auth.Anonymous, ConnConfig{})

	require.NoError(t, c.Send([]byte("queued")))

	c.shutdown()
	assert.ErrorIs(t, c.Send([]byte("dropped")), ErrConnClosed)

	// shutdown is idempotent.
	c.shutdown()
}

func TestConn_SendFailsWhenQueueFull(t *testing.T) {
	c := NewConn(nil, "127.0.0.1:1234", auth.Anonymous, ConnConfig{})

	for i := 0; i < sendQueueSize; i++ {
		require.NoError(t, c.Send([]byte("fill")))
	}
	assert.ErrorIs(t, c.Send([]byte("overflow")), ErrConnClosed)
}

func TestConn_IdentityBoundAtCreation(t *testing.T) {
	identity := auth.Identity{ID: "42", Username: "ada", Email: "ada@example.com"}
	c := NewConn(nil, "127.0.0.1:1234", identity, ConnConfig{})

	assert.Equal(t, identity, c.Identity())
	assert.NotEmpty(t, c.ID())

	other := NewConn(nil, "127.0.0.1:5678", auth.Anonymous, ConnConfig{})
	assert.NotEqual(t, c.ID(), other.ID())
	assert.True(t, other.Identity().IsAnonymous())
}
