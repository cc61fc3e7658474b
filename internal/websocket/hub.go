package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ragone-be/internal/dto"
	"ragone-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the Redis channel instances use to fan profile status
// messages out to clients connected elsewhere.
const ClusterChannel = "profile_status_events"

const moduleTag = "WS_HUB"

type clusterEnvelope struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

// Hub tracks websocket clients per user (multi-device) and delivers profile
// status messages to them.
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// nil when running single-instance
	rdb *redis.Client
	// identifies this instance so it ignores its own cluster messages
	instanceID string
	ready      chan struct{}
	// closed when Run returns
	done chan struct{}

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Ready is closed once the hub listens for cluster messages (immediately
// when there is no Redis).
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	} else {
		close(h.ready)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info(moduleTag, "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info(moduleTag, "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

// Register hands client to the run loop. It returns false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister hands client to the run loop for removal. It is a no-op once
// the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Send delivers a status message to every local connection of userID and
// publishes it for the other instances.
func (h *Hub) Send(userID uuid.UUID, msg dto.ProfileStatusMessage) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "profile_status",
		"data": msg,
	})
	if err != nil {
		h.logger.Error(moduleTag, "Failed to encode status message", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(userID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterEnvelope{
			Origin:       h.instanceID,
			TargetUserID: userID.String(),
			Message:      data,
		})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn(moduleTag, "Cluster publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// deliverLocal never blocks; a client whose buffer is full is dropped.
// Sends happen under the read lock so remove cannot close a Send channel
// mid-delivery.
func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) {
	var full []*Client

	h.mu.RLock()
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			full = append(full, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range full {
		h.logger.Warn(moduleTag, "Client Send buffer full, dropping client", map[string]interface{}{"user_id": userID})
		go h.Unregister(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error(moduleTag, "Cluster subscribe failed", map[string]interface{}{"error": err.Error()})
		close(h.ready)
		return
	}
	close(h.ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn(moduleTag, "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}
			uid, err := uuid.Parse(env.TargetUserID)
			if err != nil {
				continue
			}
			h.deliverLocal(uid, env.Message)
		}
	}
}
