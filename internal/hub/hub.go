// Package hub coordinates live WebSocket connections, groups them into named
// broadcast sets, and fans events out to group members.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
)

// ErrHubClosed is returned when joining a hub that has begun shutdown.
var ErrHubClosed = errors.New("hub: shutting down")

// Session is one live connection as seen by the registry and the consumers.
// Conn is the production implementation; tests substitute their own.
type Session interface {
	ID() string
	Identity() auth.Identity
	Send(payload []byte) error
}

// Consumer is the per-connection state machine driving a connection's
// lifetime. Join runs before the pumps start, Receive once per inbound
// frame in arrival order, and Leave exactly once on every exit path.
type Consumer interface {
	Join(s Session) error
	Receive(s Session, data []byte)
	Leave(s Session)
}

// Hub is the group registry. It maps group names to member sessions and is
// safe for concurrent use by every connection's goroutines. Membership
// mutations are serialized per hub; broadcasts snapshot the member set and
// deliver without holding the lock.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Session]bool
	conns  map[*Conn]bool
	closed bool

	wg sync.WaitGroup
}

// NewHub creates an empty registry ready to serve connections.
func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[Session]bool),
		conns:  make(map[*Conn]bool),
	}
}

// Join adds the session to the named group, creating the group on first
// join. Concurrent joins to the same group never lose members.
func (h *Hub) Join(group string, s Session) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[Session]bool)
		h.groups[group] = members
	}
	members[s] = true
	count := len(members)
	h.mu.Unlock()

	slog.Info("connection joined group", "connID", s.ID(), "group", group, "members", count)
	return nil
}

// Leave removes the session from the named group. Removing an absent
// member, or leaving a group that was never created, is a no-op. Empty
// groups are pruned.
func (h *Hub) Leave(group string, s Session) {
	h.mu.Lock()
	members, ok := h.groups[group]
	if !ok || !members[s] {
		h.mu.Unlock()
		return
	}
	delete(members, s)
	count := len(members)
	if count == 0 {
		delete(h.groups, group)
	}
	h.mu.Unlock()

	slog.Info("connection left group", "connID", s.ID(), "group", group, "members", count)
}

// Broadcast delivers the payload to every current member of the group,
// skipping exclude when non-nil. The member set is snapshotted up front so
// joins and leaves are never blocked by slow recipients, and one
// recipient's dead transport never prevents delivery to the rest.
func (h *Hub) Broadcast(group string, payload []byte, exclude Session) {
	h.mu.RLock()
	members := make([]Session, 0, len(h.groups[group]))
	for s := range h.groups[group] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	var failed []Session
	for _, s := range members {
		if s == exclude {
			continue
		}
		if err := s.Send(payload); err != nil {
			slog.Warn("dropping unreachable group member", "connID", s.ID(), "group", group, "error", err)
			failed = append(failed, s)
		}
	}

	for _, s := range failed {
		h.Leave(group, s)
		if c, ok := s.(*Conn); ok {
			c.shutdown()
		}
	}
}

// Count returns the current number of members in the named group.
func (h *Hub) Count(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Stats reports the number of active groups and live connections.
func (h *Hub) Stats() (groups, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups), len(h.conns)
}

// Serve runs the consumer's join logic and starts the connection's pump
// goroutines. On join failure the transport is closed and the consumer is
// never attached.
func (h *Hub) Serve(c *Conn, consumer Consumer) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.closeTransport()
		return ErrHubClosed
	}
	h.conns[c] = true
	h.mu.Unlock()

	if err := consumer.Join(c); err != nil {
		h.dropConn(c)
		c.shutdown()
		c.closeTransport()
		return err
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump(consumer, h)
	}()
	return nil
}

func (h *Hub) dropConn(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Shutdown stops accepting connections, closes every live transport, and
// waits for the pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	slog.Info("shutting down hub", "connections", len(conns))
	for _, c := range conns {
		c.closeTransport()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
