package hub

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/DSwithSiam/demo-websocket-project/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendQueueSize = 256
)

// ErrConnClosed is returned by Send once the connection's outbound queue has
// been closed or is full. Callers treat it as "drop and let cleanup happen".
var ErrConnClosed = errors.New("hub: connection closed")

// ConnConfig carries the per-connection limits applied at creation time.
type ConnConfig struct {
	MaxMessageSize int64
	RateLimit      rate.Limit
	RateBurst      int
}

// Conn wraps one client's live WebSocket transport. It owns the outbound
// queue and the read/write pumps; the enclosing consumer owns everything
// else about the connection's lifetime.
type Conn struct {
	id       string
	ws       *websocket.Conn
	addr     string
	identity auth.Identity

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	limiter        *rate.Limiter
	maxMessageSize int64
}

// NewConn wraps an accepted WebSocket transport. The identity is resolved
// by the auth binder before the connection is created and is never
// re-evaluated.
func NewConn(ws *websocket.Conn, addr string, identity auth.Identity, cfg ConnConfig) *Conn {
	if cfg.MaxMessageSize > 0 && ws != nil {
		ws.SetReadLimit(cfg.MaxMessageSize)
	}

	var limiter *rate.Limiter
	if cfg.RateBurst > 0 {
		limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	return &Conn{
		id:             uuid.NewString(),
		ws:             ws,
		addr:           addr,
		identity:       identity,
		send:           make(chan []byte, sendQueueSize),
		closed:         make(chan struct{}),
		limiter:        limiter,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Identity returns the identity bound at handshake time.
func (c *Conn) Identity() auth.Identity { return c.identity }

// Send enqueues a payload for delivery. It fails with ErrConnClosed when
// the connection is closed or its queue is full; the failure is isolated to
// this recipient and never surfaces to other deliveries.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		return ErrConnClosed
	}
}

// shutdown marks the outbound queue dead. Idempotent; safe to call from the
// hub's failed-recipient sweep and the read pump's exit path concurrently.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// closeTransport closes the underlying socket. Always succeeds locally,
// even when the peer is already gone.
func (c *Conn) closeTransport() {
	if c.ws == nil {
		return
	}
	if err := c.ws.Close(); err != nil && !isExpectedCloseError(err) {
		slog.Debug("error closing connection transport", "connID", c.id, "error", err)
	}
}

func (c *Conn) setupRead() {
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Debug("error setting initial read deadline", "connID", c.id, "error", err)
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// readPump processes inbound frames in arrival order until the transport
// closes, then unwinds through the consumer's leave transition. Leave runs
// on every exit: error, explicit close, or protocol violation.
func (c *Conn) readPump(consumer Consumer, h *Hub) {
	defer func() {
		consumer.Leave(c)
		h.dropConn(c)
		c.shutdown()
		c.closeTransport()
	}()

	c.setupRead()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			slog.Warn("rate limit exceeded; discarding message", "connID", c.id, "remoteAddr", c.addr)
			continue
		}

		consumer.Receive(c, data)
	}
}

func (c *Conn) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("inbound message exceeded maximum size", "connID", c.id, "maxBytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		slog.Info("client disconnected", "connID", c.id, "remoteAddr", c.addr)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		slog.Info("client connection closed", "connID", c.id, "remoteAddr", c.addr)
	default:
		slog.Warn("websocket read error", "connID", c.id, "remoteAddr", c.addr, "error", err)
	}
}

// writePump serializes outbound writes and keeps the connection alive with
// periodic pings. One frame per payload: clients parse each frame as a
// standalone JSON document.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeTransport()
	}()

	for {
		select {
		case payload := <-c.send:
			if !c.writeFrame(payload) {
				return
			}
		case <-c.closed:
			c.drainAndClose()
			return
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					slog.Debug("error writing ping", "connID", c.id, "error", err)
				}
				return
			}
		}
	}
}

func (c *Conn) writeFrame(payload []byte) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		slog.Debug("error setting write deadline", "connID", c.id, "error", err)
		return false
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			slog.Debug("error writing message", "connID", c.id, "error", err)
		}
		return false
	}
	return true
}

// drainAndClose flushes anything still queued, then sends a close frame.
func (c *Conn) drainAndClose() {
	for {
		select {
		case payload := <-c.send:
			if !c.writeFrame(payload) {
				return
			}
		default:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
				slog.Debug("error writing close message", "connID", c.id, "error", err)
			}
			return
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
