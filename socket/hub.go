package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"teamvault/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	SnapshotType = "SNAPSHOT" // Full document sent once on connect
	UpdateType   = "UPDATE"   // Full document after a successful write
)

type FeedMessage struct {
	Type      string          `json:"type"`
	Version   uint64          `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// SnapshotFunc loads the current document and the write version it reflects.
type SnapshotFunc func(ctx context.Context) (json.RawMessage, uint64, error)

type Hub struct {
	Broadcast  chan FeedMessage
	Register   chan *Client
	Unregister chan *Client

	snapshot SnapshotFunc
	done     chan struct{}

	mu      sync.Mutex
	clients map[*Client]bool

	// Latest document sent to subscribers, owned by Run.
	current json.RawMessage
	version uint64
	loaded  bool
}

type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		Broadcast:  make(chan FeedMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		snapshot:   snapshot,
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Publish queues doc for every subscriber. Updates older than the latest one
// the hub has seen are dropped. Publish never blocks once the hub has stopped.
func (h *Hub) Publish(doc json.RawMessage, version uint64) {
	msg := FeedMessage{Type: UpdateType, Version: version, Payload: doc, Timestamp: time.Now().UTC()}
	select {
	case h.Broadcast <- msg:
	case <-h.done:
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logger.Sugar.Info("Change feed stopped")
			return

		case client := <-h.Register:
			// Every subscriber starts from storage so edits made outside the
			// server show up. The cached copy is the fallback when loading fails.
			doc, version, err := h.snapshot(ctx)
			switch {
			case err != nil:
				logger.Sugar.Errorf("Failed to load document for change feed: %v", err)
			case !h.loaded || version >= h.version:
				h.current, h.version, h.loaded = doc, version, true
			}

			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			if h.loaded {
				payload, err := json.Marshal(FeedMessage{
					Type:      SnapshotType,
					Version:   h.version,
					Payload:   h.current,
					Timestamp: time.Now().UTC(),
				})
				if err != nil {
					logger.Sugar.Errorf("Error marshalling snapshot: %v", err)
					continue
				}
				h.deliver(client, payload)
			}

		case client := <-h.Unregister:
			h.removeClient(client)

		case msg := <-h.Broadcast:
			if h.loaded && msg.Version <= h.version {
				continue
			}
			h.current, h.version, h.loaded = msg.Payload, msg.Version, true

			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				h.deliver(client, payload)
			}
		}
	}
}

// deliver queues payload without blocking the hub. A client whose buffer is
// full is lagging and gets dropped.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		logger.Sugar.Warnf("Subscriber %s send buffer is full. Dropping it.", client.remoteAddr())
		h.removeClient(client)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
}
