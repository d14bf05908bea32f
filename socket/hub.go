package socket

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"docsearch/internal/document/model"
	"docsearch/pkg/logger"
)

const (
	CreatedType = "CREATED" // Document uploaded
	UpdatedType = "UPDATED" // Title/content replaced
	DeletedType = "DELETED" // Document removed; Document is nil
)

// Event describes a committed change to a document.
type Event struct {
	Type     string          `json:"type"`
	DocID    int64           `json:"document_id"`
	Document *model.Document `json:"document,omitempty"`
}

// Hub fans committed document changes out to every connected client. The
// client set is owned by the Run goroutine; no document state is kept here.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan Event
	Register   chan *Client
	Unregister chan *Client

	stopped chan struct{}
	count   atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan Event),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done. It must be
// running for Publish to deliver.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for client := range h.Clients {
				h.drop(client)
			}
			return

		case client := <-h.Register:
			h.Clients[client] = true
			h.count.Store(int64(len(h.Clients)))

		case client := <-h.Unregister:
			if h.Clients[client] {
				h.drop(client)
			}

		case ev := <-h.Broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling document event: %v", err)
				continue
			}
			for client := range h.Clients {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.Conn.RemoteAddr())
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.Clients, client)
	close(client.Send)
	h.count.Store(int64(len(h.Clients)))
}

// Publish hands ev to the hub. It returns immediately once the hub has
// stopped.
func (h *Hub) Publish(ev Event) {
	select {
	case h.Broadcast <- ev:
	case <-h.stopped:
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.stopped:
	}
}
