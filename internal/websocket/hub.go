package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"post-editor-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Message is the frame pushed to editor sockets.
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
}

// Message types.
const (
	TypeUpdate = "update"
	TypeStale  = "stale"
	TypeResult = "result"
	TypeError  = "error"
)

// clusterMessage travels over redis between instances.
type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: session id -> sockets (several tabs may watch one session)
	clients map[string][]*Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out; nil runs single-instance
	rdb     *redis.Client
	channel string
	origin  string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, channel string, log logger.ILogger) *Hub {
	return &Hub{
		clients: make(map[string][]*Client),
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  log,
	}
}

// Run relays cluster messages until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}
	<-ctx.Done()
	h.closeAll()
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
	h.mu.Unlock()
	h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID, "user_id": client.UserID})
}

// remove unregisters client and closes its Send channel; removing twice is a no-op.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[client.SessionID]
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
	}
}

// reply queues data for client alone, if it is still registered.
func (h *Hub) reply(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[client.SessionID] {
		if c == client {
			select {
			case client.Send <- data:
				return true
			default:
				return false
			}
		}
	}
	return false
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for _, c := range clients {
			close(c.Send)
		}
		delete(h.clients, id)
	}
}

// CloseSession disconnects every local socket of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients[sessionID] {
		close(c.Send)
	}
	delete(h.clients, sessionID)
}

// Connected returns how many local sockets watch sessionID.
func (h *Hub) Connected(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Send pushes msg to every socket of its session on this instance and on the others.
func (h *Hub) Send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode message", map[string]interface{}{"error": err.Error(), "type": msg.Type})
		return
	}

	h.deliver(msg.SessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.origin, SessionID: msg.SessionID, Message: data})
		if err := h.rdb.Publish(context.Background(), h.channel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// deliver writes data to the local sockets of sessionID. Sockets whose buffer is full are dropped.
func (h *Hub) deliver(sessionID string, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping socket", map[string]interface{}{"session_id": sessionID})
		h.remove(client)
	}
}

// subscribeToRedis relays messages published by other instances to local sockets.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.origin {
				continue
			}
			h.deliver(payload.SessionID, payload.Message)
		}
	}
}
