package realtime

import (
	"context"
	"sync"

	applog "stockkeeper/internal/log"
)

// EventDataUpdated tells admin pages to reload.
const EventDataUpdated = "data_updated"

const sendQueue = 256

// Client is one connected listener.
type Client struct {
	send chan []byte
}

func NewClient() *Client { return &Client{send: make(chan []byte, sendQueue)} }

// Messages is closed when the hub drops the client.
func (c *Client) Messages() <-chan []byte { return c.send }

// Publisher fans a message out to every instance, this one included.
type Publisher interface {
	Publish(ctx context.Context, msg string) error
}

// Hub owns the set of connected clients. All membership changes and
// broadcasts go through Run.
type Hub struct {
	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *Client
	done         chan struct{}

	pub Publisher
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// UsePublisher routes Notify through p instead of broadcasting directly.
func (h *Hub) UsePublisher(p Publisher) { h.pub = p }

// Run serves the hub until ctx ends, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.clientsMutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMutex.Unlock()
			return
		case c := <-h.register:
			h.clientsMutex.Lock()
			h.clients[c] = struct{}{}
			h.clientsMutex.Unlock()
		case c := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMutex.Unlock()
		case msg := <-h.broadcast:
			h.clientsMutex.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// too slow; drop it
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues msg for every local client.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Notify announces a data change. With a publisher attached the event goes
// through it; on publish failure it is delivered locally.
func (h *Hub) Notify() {
	if h.pub != nil {
		err := h.pub.Publish(context.Background(), EventDataUpdated)
		if err == nil {
			return
		}
		applog.Error(nil, "realtime.publish", err, nil)
	}
	h.Broadcast([]byte(EventDataUpdated))
}
