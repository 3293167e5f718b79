package relay

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/busbeacon/beacon/internal/ports"
	"github.com/busbeacon/beacon/internal/wire"
)

const sendBuffer = 32

// conn wraps one websocket connection with a buffered outbound queue so
// a slow reader cannot block the room that fans out to it.
type conn struct {
	id  string
	ws  *websocket.Conn
	obs ports.Observability

	send      chan wire.Message
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, ws *websocket.Conn, obs ports.Observability) *conn {
	return &conn{
		id:   id,
		ws:   ws,
		obs:  obs,
		send: make(chan wire.Message, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues a message for delivery, dropping it when the peer's
// buffer is full. Document state converges via the next snapshot or a
// newer set, so a dropped fan-out frame is not fatal.
func (c *conn) enqueue(msg wire.Message) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.obs.LogInfo("conn_send_buffer_full", ports.Field{Key: "conn_id", Value: c.id})
	}
}

func (c *conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.ws.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump applies inbound set operations to the room until the peer
// goes away. It runs on the connection's serving goroutine.
func (c *conn) readPump(r *room) {
	defer c.close()
	for {
		var msg wire.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Op == wire.OpSet {
			r.apply(c, msg)
		}
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
