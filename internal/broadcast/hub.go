// Package broadcast fans analysis frames out to websocket clients and routes
// their control messages to the session. One serialization per frame, shared
// by every client; slow clients drop frames instead of stalling the hub.
package broadcast

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Elloy123/imbalance-chart27/internal/instrumentation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-host dashboard plus local tooling
	},
}

type Hub struct {
	ctrl    Controller
	ring    *Ring
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	frames     chan []byte
	clients    map[*Client]bool
}

func NewHub(ctrl Controller, ring *Ring, metrics *instrumentation.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		ctrl:       ctrl,
		ring:       ring,
		metrics:    metrics,
		logger:     logger.With("component", "broadcast_hub"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		frames:     make(chan []byte, 256),
		clients:    make(map[*Client]bool),
	}
}

// Broadcast queues one live frame for fan-out and records it for replay.
// Never blocks the caller; under hub backpressure the frame is dropped.
func (h *Hub) Broadcast(frame []byte) {
	h.ring.Add(frame)
	select {
	case h.frames <- frame:
	default:
		h.metrics.FrameDropped()
	}
}

// BroadcastControl fans out a control frame (engines_updated and friends)
// without recording it for replay.
func (h *Hub) BroadcastControl(frame []byte) {
	select {
	case h.frames <- frame:
	default:
		h.metrics.FrameDropped()
	}
}

// ClearReplay empties the replay buffer, used when the streamed symbol
// changes and buffered ticks no longer apply.
func (h *Hub) ClearReplay() {
	h.ring.Clear()
}

// Run owns the client set until ctx is cancelled. All membership changes and
// fan-out happen on this goroutine, so no locking is needed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.ClientConnected()
			h.logger.Info("client_connected", "remote", client.remote, "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.ClientDisconnected()
				h.logger.Info("client_disconnected", "remote", client.remote, "total", len(h.clients))
			}

		case frame := <-h.frames:
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					// Slow client misses this frame and catches up on
					// the next one. Dead clients leave via readPump.
					h.metrics.FrameDropped()
				}
			}
		}
	}
}

// ServeWS upgrades one HTTP request into a broadcast client. The greeting and
// replay backlog go out before the client joins the live set, so it never
// sees a gap between history and live frames.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(h, conn, r.RemoteAddr)

	if err := client.greet(); err != nil {
		conn.Close()
		return
	}

	h.register <- client
	go client.writePump()
	go client.readPump()
}
