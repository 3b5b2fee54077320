package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
)

// MessageHandler serves the message endpoints nested under a conversation.
type MessageHandler struct {
	log   *services.MessageLog
	audit *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler. audit may be nil.
func NewMessageHandler(log *services.MessageLog, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{log: log, audit: audit}
}

type messageBody struct {
	Body string `json:"body" binding:"required"`
}

// ListMessages returns a page of active messages, oldest first. The page is
// selected with ?limit= and ?before_id=.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	beforeID, ok := queryInt(c, "before_id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	msgs, err := h.log.List(c.Request.Context(), conversationID, userID, models.Page{Limit: limit, BeforeID: int64(beforeID)})
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message from the caller.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}
	var req messageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, actor := currentUser(c)
	msg, err := h.log.Append(c.Request.Context(), conversationID, actor, req.Body)
	if err != nil {
		respondError(c, err, "failed to store message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// EditMessage replaces the body of one of the caller's messages.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c, "message_id", "message id")
	if !ok {
		return
	}
	var req messageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := currentUser(c)
	msg, err := h.log.Edit(c.Request.Context(), conversationID, messageID, userID, req.Body)
	if err != nil {
		respondError(c, err, "failed to edit message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage tombstones one of the caller's messages.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c, "message_id", "message id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	if err := h.log.SoftDelete(c.Request.Context(), conversationID, messageID, userID); err != nil {
		respondError(c, err, "failed to delete message")
		return
	}

	auditAction(c, h.audit, "message.deleted", map[string]string{
		"conversation_id": idAttr(conversationID),
		"message_id":      idAttr(messageID),
	})
	c.Status(http.StatusNoContent)
}
