package websocket

import (
	"encoding/json"

	"github.com/stemsi/abroad-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSubscribed Event = "subscribed"
	EventMessage    Event = "message"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// SubscribedResponse confirms the stream is attached to a conversation.
type SubscribedResponse struct {
	Event          Event  `json:"event"`
	ConversationID string `json:"conversationId"`
}

// MessageEvent carries a message appended to the conversation. Message is
// the JSON published by the sender, relayed untouched.
type MessageEvent struct {
	Event   Event           `json:"event"`
	Message json.RawMessage `json:"message"`
}

// Decode unpacks the relayed message.
func (e MessageEvent) Decode() (model.Message, error) {
	var m model.Message
	err := json.Unmarshal(e.Message, &m)
	return m, err
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
