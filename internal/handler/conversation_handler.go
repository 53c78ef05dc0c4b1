package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/response"
	"github.com/stemsi/abroad-backend/internal/service"
	"github.com/stemsi/abroad-backend/internal/validator"
)

// ConversationHandler handles application conversation messages.
type ConversationHandler struct {
	conversationService *service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// ListMessages godoc
// GET /api/v1/conversations/:id/messages?page=&take=
// Returns messages oldest first.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	page, take := pageParams(c)
	result, err := h.conversationService.ListMessages(c.Request.Context(), id, page, take)
	if err != nil {
		failWith(c, err)
		return
	}

	messages := result.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	response.SuccessWithPage(c, http.StatusOK, messages, result.Meta)
}

// Send godoc
// POST /api/v1/conversations/:id/messages
// Appends a message with text, pre-uploaded files, or both.
func (h *ConversationHandler) Send(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		if _, tooMany := fields["files"]; tooMany && len(req.Files) > 3 {
			response.Fail(c, http.StatusBadRequest, response.ErrTooManyFiles)
			return
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	msg, err := h.conversationService.Send(c.Request.Context(), actor, id, req)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, msg)
}
