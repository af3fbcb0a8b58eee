package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"onu-map/internal/domain"
	"onu-map/internal/metrics"

	"github.com/gookit/event"
)

// Message types for websocket communication
const (
	MessageTypeStatusEvent = "status_event"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

const broadcastBuffer = 256

// Message is the envelope of every frame sent to map clients
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     domain.Logger
}

// NewHub creates a new Hub
func NewHub(logger domain.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// RegisterEventListeners forwards every status transition to the clients
func (h *Hub) RegisterEventListeners(eventManager *event.Manager) {
	eventManager.On(domain.EventStatusChanged, event.ListenerFunc(func(e event.Event) error {
		ev, ok := e.Get("event").(*domain.StatusEvent)
		if !ok {
			return fmt.Errorf("invalid status event type")
		}
		h.Broadcast(MessageTypeStatusEvent, ev)
		return nil
	}))
}

// Serve runs the hub until ctx is done, then closes every client
func (h *Hub) Serve(ctx context.Context) error {
	for {
		// client lifecycle first so broadcasts see a settled client set
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.register:
			h.add(client)
			continue
		case client := <-h.unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) String() string {
	return "websocket-hub"
}

// Broadcast queues a message for every connected client. The message is
// dropped when the queue is full.
func (h *Hub) Broadcast(messageType string, data any) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		metrics.WSDropped.Inc()
		h.logger.WithField("message_type", messageType).Warn("Broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.logger.WithField("total_clients", total).Info("Websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.logger.WithField("total_clients", total).Info("Websocket client disconnected")
}

// broadcastToClients sends message to every client in id order. Clients
// whose send buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClients()
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			metrics.WSDropped.Inc()
			h.logger.WithField("client_id", client.id).Warn("Slow websocket client dropped")
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	closed := 0
	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		closed++
	}
	metrics.WSConnections.Set(0)
	h.logger.WithField("clients_closed", closed).Info("Websocket hub stopped")
}

// sortedClients must be called with mu held
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}
