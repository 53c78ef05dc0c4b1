package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is one WebSocket connection following a conversation.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	conversationID string
	send           chan []byte
	once           sync.Once
	log            zerolog.Logger
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, conversationID string, log zerolog.Logger) *Client {
	return &Client{
		hub:            hub,
		conn:           conn,
		conversationID: conversationID,
		send:           make(chan []byte, 64),
		log:            log,
	}
}

// Serve joins the hub and pumps until the connection ends. It blocks.
func (c *Client) Serve() {
	c.hub.Join(c)
	go c.writePump()
	c.readPump()
}

// Close detaches the client and closes the connection. Safe to call twice.
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.Leave(c)
		close(c.send)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(maxClientMessage)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req RequestEnvelope
		if err := ReadJSON(c.conn, &req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch req.Action {
		case ActionPing:
			c.enqueue(PongResponse{Event: EventPong})
		default:
			c.enqueue(ErrorResponse{Event: EventError, Error: "unknown action"})
		}
	}
}

func (c *Client) enqueue(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	r := c.hub.rooms[c.conversationID]
	if r == nil {
		return
	}
	if _, attached := r.clients[c]; !attached {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
