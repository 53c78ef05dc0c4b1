package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Subscriber opens the pub/sub feed of one conversation.
type Subscriber interface {
	Subscribe(ctx context.Context, conversationID string) *redis.PubSub
}

// Hub fans conversation messages out to connected clients. Each
// conversation with at least one client holds a single Redis subscription,
// so any API instance's writes reach every stream.
type Hub struct {
	sub   Subscriber
	log   zerolog.Logger
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	clients map[*Client]struct{}
	cancel  context.CancelFunc
}

// NewHub creates a Hub reading from sub.
func NewHub(sub Subscriber, log zerolog.Logger) *Hub {
	return &Hub{
		sub:   sub,
		log:   log.With().Str("component", "conversation_hub").Logger(),
		rooms: make(map[string]*room),
	}
}

// Join attaches c to its conversation, subscribing on first use.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[c.conversationID]
	if r == nil {
		ctx, cancel := context.WithCancel(context.Background())
		r = &room{clients: make(map[*Client]struct{}), cancel: cancel}
		h.rooms[c.conversationID] = r
		go h.relay(ctx, c.conversationID, h.sub.Subscribe(ctx, c.conversationID))
	}
	r.clients[c] = struct{}{}
}

// Leave detaches c, dropping the subscription when the room empties.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[c.conversationID]
	if r == nil {
		return
	}
	delete(r.clients, c)
	if len(r.clients) == 0 {
		r.cancel()
		delete(h.rooms, c.conversationID)
	}
}

// Clients reports how many clients are attached to a conversation.
func (h *Hub) Clients(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r := h.rooms[conversationID]; r != nil {
		return len(r.clients)
	}
	return 0
}

// Broadcast sends an encoded message to every client of a conversation.
// Clients whose buffer is full are disconnected rather than waited on.
func (h *Hub) Broadcast(conversationID string, message json.RawMessage) {
	payload, err := json.Marshal(MessageEvent{Event: EventMessage, Message: message})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode message event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[conversationID]
	if r == nil {
		return
	}
	for c := range r.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Str("conversation_id", conversationID).Msg("Dropping slow stream client")
			go c.Close()
		}
	}
}

func (h *Hub) relay(ctx context.Context, conversationID string, ps *redis.PubSub) {
	defer ps.Close()
	h.log.Debug().Str("conversation_id", conversationID).Msg("Subscribed to conversation")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("conversation_id", conversationID).Msg("Unsubscribed from conversation")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				h.log.Warn().Str("conversation_id", conversationID).Msg("Discarding malformed message payload")
				continue
			}
			h.Broadcast(conversationID, json.RawMessage(msg.Payload))
		}
	}
}
