package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "parkease:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
	sendBuffer     = 64
)

// Event is the JSON frame written to websocket clients.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// Hub fans owner events out to websocket clients. With Redis configured every
// message goes through pub/sub so clients on any instance receive it.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	logger  *zap.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	OwnerID string
	Send    chan []byte
}

func NewHub(redisClient *redis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		h.pubsub = redisClient.PSubscribe(ctx, channelPattern)
		if _, err := h.pubsub.Receive(ctx); err != nil {
			logger.Warn("stream subscribe failed, delivering locally", zap.Error(err))
			_ = h.pubsub.Close()
			h.pubsub = nil
		} else {
			go h.subscribeRedis()
		}
	}
	return h
}

func (h *Hub) Register(ownerID string) *Client {
	client := &Client{
		OwnerID: ownerID,
		Send:    make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		h.clients[ownerID] = map[*Client]struct{}{}
	}
	h.clients[ownerID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ownerClients, ok := h.clients[client.OwnerID]
	if !ok {
		return
	}
	if _, ok := ownerClients[client]; !ok {
		return
	}
	delete(ownerClients, client)
	if len(ownerClients) == 0 {
		delete(h.clients, client.OwnerID)
	}
	close(client.Send)
}

// Publish wraps payload in an Event and broadcasts it to ownerID.
func (h *Hub) Publish(ctx context.Context, ownerID, eventType string, payload any) error {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return h.broadcast(ctx, ownerID, data)
}

func (h *Hub) Broadcast(ownerID string, payload []byte) {
	if err := h.broadcast(context.Background(), ownerID, payload); err != nil {
		h.logger.Warn("stream broadcast failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func (h *Hub) broadcast(ctx context.Context, ownerID string, payload []byte) error {
	if h.pubsub == nil {
		h.deliver(ownerID, payload)
		return nil
	}
	if err := h.redis.Publish(ctx, redisChannel(ownerID), payload).Err(); err != nil {
		// not seen by the subscriber, deliver locally
		h.deliver(ownerID, payload)
		return err
	}
	return nil
}

// deliver drops the message for clients whose buffer is full.
func (h *Hub) deliver(ownerID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[ownerID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	for msg := range h.pubsub.Channel() {
		ownerID := ownerIDFromChannel(msg.Channel)
		if ownerID == "" {
			continue
		}
		h.deliver(ownerID, []byte(msg.Payload))
	}
}

// Close stops the Redis subscription. Registered clients are left to their handlers.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func redisChannel(ownerID string) string {
	return channelPrefix + ownerID + channelSuffix
}

func ownerIDFromChannel(ch string) string {
	// parkease:{owner}:events
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
