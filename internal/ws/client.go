package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatroomgo/internal/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait
)

// clientConn is one live transport session. It implements core.Conn: the
// engine enqueues outbound events on the bounded send channel and the write
// pump drains it, so one slow socket can never stall a room.
type clientConn struct {
	id       string
	identity core.Identity
	rawConn  *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClientConn(id string, identity core.Identity, raw *websocket.Conn, queueSize int) *clientConn {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &clientConn{
		id:       id,
		identity: identity,
		rawConn:  raw,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

func (c *clientConn) ID() string              { return c.id }
func (c *clientConn) Identity() core.Identity { return c.identity }

// Enqueue offers the encoded event to the outbound queue without blocking.
// false means the queue is full (slow consumer) and the engine will kick
// the connection.
func (c *clientConn) Enqueue(ev core.Event) bool {
	data, err := EncodeEvent(ev)
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", ev.EventName()), zap.Error(err))
		return true // drop the frame, keep the connection
	}
	select {
	case <-c.done:
		return true // closing; delivery silently dropped
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Kick closes the transport; the reader loop unblocks and detaches the
// connection from the engine.
func (c *clientConn) Kick(reason string) {
	c.close(websocket.ClosePolicyViolation, reason)
}

func (c *clientConn) close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.rawConn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.rawConn.Close()
	})
}

// writeJSON serializes a direct reply (ack or error) onto the same queue as
// fanned-out events so frame order on the socket matches enqueue order.
func (c *clientConn) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("ws.encode_reply", zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		// Reply queue full counts as slow-consumer too.
		c.Kick("slow_consumer")
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. One writer goroutine per connection; gorilla allows a
// single concurrent writer.
func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close(websocket.CloseNormalClosure, "")
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
