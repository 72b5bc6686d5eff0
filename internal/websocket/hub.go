// Package websocket runs chat pages over websocket sessions: one socket is
// one mounted page.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/johndosdos/tripchat/internal/observability"
)

var ErrHubStopped = errors.New("websocket hub stopped")

type Registration struct {
	Client *Client
	Done   chan struct{}
}

// Hub tracks the mounted pages so they can be unmounted together on
// shutdown.
type Hub struct {
	clients    map[uuid.UUID]*Client
	Register   chan Registration
	Unregister chan *Client
	stopped    chan struct{}
	active     atomic.Int64
	log        *slog.Logger
}

// NewHub returns a new instance of Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}

	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		Register:   make(chan Registration),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		log:        log,
	}
}

// Run manages page registration until ctx is cancelled, then unmounts every
// page still open.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case reg := <-h.Register:
			client := reg.Client
			h.clients[client.ID] = client
			client.Hub = h
			h.setActive()
			close(reg.Done)

		case client := <-h.Unregister:
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				h.setActive()
			}

		case <-ctx.Done():
			h.log.Info("unmounting open pages", slog.Int("count", len(h.clients)))
			h.closeAll()
			return
		}
	}
}

// closeAll unmounts every page and closes the sockets in parallel; each
// close handshake may wait for its peer.
func (h *Hub) closeAll() {
	var wg sync.WaitGroup
	for id, client := range h.clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.page.Unmount()
			client.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}()
		delete(h.clients, id)
	}
	wg.Wait()
	h.setActive()
}

// Done is closed once Run has returned and every page is unmounted.
func (h *Hub) Done() <-chan struct{} {
	return h.stopped
}

// Join registers c and waits until the hub has accepted it.
func (h *Hub) Join(ctx context.Context, c *Client) error {
	reg := Registration{Client: c, Done: make(chan struct{})}

	select {
	case h.Register <- reg:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-reg.Done
	return nil
}

// Leave unregisters c. It does nothing once the hub has stopped.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.stopped:
	}
}

// Active returns the number of mounted pages.
func (h *Hub) Active() int {
	return int(h.active.Load())
}

func (h *Hub) setActive() {
	h.active.Store(int64(len(h.clients)))
	observability.PageSessionsActive.Set(float64(len(h.clients)))
}
