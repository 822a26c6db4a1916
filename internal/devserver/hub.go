package devserver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/gamekit/internal/telemetry"
	"golang.org/x/net/websocket"
)

// ReloadMessage is pushed to every connected browser after a build.
type ReloadMessage struct {
	Type    string `json:"type"`
	BuildID string `json:"build_id"`
}

type client struct {
	send chan ReloadMessage
}

// Hub tracks live reload websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  chan struct{}
	once    sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients: map[*client]struct{}{},
		closed:  make(chan struct{}),
	}
}

// Handler serves the websocket endpoint. Any origin is accepted.
func (h *Hub) Handler() websocket.Server {
	return websocket.Server{Handler: h.serve}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues a reload for every client. Slow clients that already
// have a reload pending are skipped.
func (h *Hub) Broadcast(ctx context.Context, buildID string) int {
	msg := ReloadMessage{Type: "reload", BuildID: buildID}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
		}
	}

	telemetry.GetMetrics().ReloadsTotal.Add(ctx, 1)
	zerolog.Ctx(ctx).Info().Str("build_id", buildID).Int("clients", sent).Msg("Reloading browsers")

	return sent
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.closed) })
}

func (h *Hub) add(ctx context.Context, c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	telemetry.GetMetrics().ReloadClients.Add(ctx, 1)
}

func (h *Hub) remove(ctx context.Context, c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	telemetry.GetMetrics().ReloadClients.Add(ctx, -1)
}

func (h *Hub) serve(ws *websocket.Conn) {
	defer ws.Close()

	// The http.Server deadlines survive the hijack.
	_ = ws.SetDeadline(time.Time{})

	ctx := ws.Request().Context()
	log := zerolog.Ctx(ctx)

	c := &client{send: make(chan ReloadMessage, 1)}
	h.add(ctx, c)
	defer h.remove(ctx, c)

	log.Debug().Str("remote", ws.Request().RemoteAddr).Msg("Live reload client connected")

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard string
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-c.send:
			if err := websocket.JSON.Send(ws, msg); err != nil {
				log.Debug().Err(err).Msg("Live reload client write failed")
				return
			}
		case <-gone:
			log.Debug().Msg("Live reload client disconnected")
			return
		case <-h.closed:
			return
		}
	}
}
