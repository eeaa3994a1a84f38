package broadcast

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 1024
)

// Client is one websocket connection. Outbound frames flow through the
// buffered send channel; inbound control messages are parsed on readPump and
// dispatched to the hub's controller.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

func newClient(h *Hub, conn *websocket.Conn, remote string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: remote,
	}
}

// greet sends the connected frame and the replay backlog synchronously,
// before the client enters the live set.
func (c *Client) greet() error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, connectedFrame(c.hub.ctrl)); err != nil {
		return err
	}
	for _, frame := range c.hub.ring.Snapshot() {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(errorFrame("malformed message"))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg clientMessage) {
	ctrl := c.hub.ctrl
	switch msg.Type {
	case "ping":
		c.reply(pongFrame)

	case "subscribe":
		if msg.Symbol != "" && msg.Symbol != ctrl.Symbol() {
			if err := ctrl.SwitchSymbol(msg.Symbol); err != nil {
				c.reply(errorFrame(err.Error()))
				return
			}
		}
		c.reply(subscribedFrame(ctrl.Symbol()))

	case "switch_symbol":
		if err := ctrl.SwitchSymbol(msg.Symbol); err != nil {
			c.reply(errorFrame(err.Error()))
			return
		}
		// symbol_changed goes to every client from the session.

	case "set_engines":
		if err := ctrl.SetEngines(msg.Engines); err != nil {
			c.reply(errorFrame(err.Error()))
		}

	case "set_weight_mode":
		if err := ctrl.SetWeightMode(msg.Mode); err != nil {
			c.reply(errorFrame(err.Error()))
		}

	case "get_engine_list":
		c.reply(engineListFrame(ctrl))

	default:
		c.reply(errorFrame("unknown message type: " + msg.Type))
	}
}

// reply queues a frame for this client only.
func (c *Client) reply(frame []byte) {
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
