package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/middleware"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
	ws "github.com/stemsi/abroad-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams conversation messages over WebSocket.
type WSHandler struct {
	conversationService *service.ConversationService
	hub                 *ws.Hub
	log                 zerolog.Logger
	upgrader            websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(conversationService *service.ConversationService, hub *ws.Hub, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		conversationService: conversationService,
		hub:                 hub,
		log:                 log.With().Str("component", "ws_handler").Logger(),
		upgrader:            buildUpgrader(allowedOrigins),
	}
}

// ConversationStream godoc
// WS /ws/v1/conversations/:id/stream
// Upgrades to WebSocket and pushes every message appended to the
// conversation, from any API instance, until the client disconnects.
func (h *WSHandler) ConversationStream(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.conversationService.Get(c.Request.Context(), id); err != nil {
		failWith(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	wsLog := h.log.With().
		Int("staff_id", actor.ID).
		Str("conversation_id", id).
		Logger()

	if err := ws.WriteTyped(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, ConversationID: id}); err != nil {
		_ = conn.Close()
		return
	}

	wsLog.Info().Msg("Staff connected to conversation stream")
	ws.NewClient(h.hub, conn, id, wsLog).Serve()
	wsLog.Debug().Msg("Conversation stream closed")
}
