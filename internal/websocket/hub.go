package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	logModule      = "SESSION_FEED"
	clusterChannel = "reading_session_events"
)

// Hub pushes reading session events to the websocket clients of their user.
// With redis, events are fanned out to every instance so a user connected to
// another node still sees them.
type Hub struct {
	// UserID -> connected clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string
	logger     logger.ILogger
}

// envelope is what clients receive.
type envelope struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// clusterMessage is what instances exchange over redis.
type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Debug(logModule, "Client registered", map[string]interface{}{"user_id": client.UserID.String()})
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// enqueue hands a (un)registration to Run unless the hub has stopped.
func (h *Hub) enqueue(ch chan *Client, client *Client) bool {
	select {
	case ch <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
	}
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

// Connected reports how many clients userID has on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish delivers a reading event to the user named in its payload. It never
// fails; undeliverable events are dropped.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	userIDStr, _ := payload["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}

	data, err := json.Marshal(envelope{Type: event.EventType(), Data: payload})
	if err != nil {
		return err
	}
	h.deliver(userID, data)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{
			Origin:       h.instanceID,
			TargetUserID: userID.String(),
			Message:      data,
		})
		if err := h.rdb.Publish(ctx, clusterChannel, msg).Err(); err != nil {
			h.logger.Warn(logModule, "Failed to fan out event", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}
	return nil
}

// deliver sends under the read lock so a client cannot be closed mid-send.
func (h *Hub) deliver(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(logModule, "Client send buffer full, dropping client", map[string]interface{}{
				"user_id": userID.String(),
			})
			go h.enqueue(h.unregister, client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
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
				h.logger.Warn(logModule, "Dropping malformed cluster event", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			userID, err := uuid.Parse(payload.TargetUserID)
			if err != nil {
				continue
			}
			h.deliver(userID, payload.Message)
		}
	}
}
