package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
)

// ConversationHandler serves the buyer/seller conversation endpoints.
type ConversationHandler struct {
	store *services.ConversationStore
	audit *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler. audit may be nil.
func NewConversationHandler(store *services.ConversationStore, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{store: store, audit: audit}
}

// StartConversation returns the conversation about a product between the
// caller, as buyer, and the seller, creating it on first contact.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
		SellerID  int64 `json:"seller_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := currentUser(c)
	conv, err := h.store.GetOrCreate(c.Request.Context(), req.ProductID, userID, req.SellerID)
	if err != nil {
		respondError(c, err, "could not start conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID, _ := currentUser(c)
	list, err := h.store.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// GetConversation returns the caller's view of one conversation.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	conv, err := h.store.GetForParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err, "failed to load conversation")
		return
	}
	summary, err := conv.SummaryFor(userID)
	if err != nil {
		respondError(c, err, "failed to load conversation")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// MarkRead zeroes the caller's unread counter.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	conv, err := h.store.GetForParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err, "failed to load conversation")
		return
	}
	updated, err := h.store.MarkRead(c.Request.Context(), conv, userID)
	if err != nil {
		respondError(c, err, "failed to mark conversation read")
		return
	}
	unread, _ := h.store.UnreadCountFor(updated, userID)
	c.JSON(http.StatusOK, gin.H{"conversation_id": updated.ID, "unread_count": unread})
}

// DeleteConversation removes the conversation and its messages for both sides.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	conv, err := h.store.GetForParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err, "failed to load conversation")
		return
	}
	if err := h.store.Delete(c.Request.Context(), conv, userID); err != nil {
		respondError(c, err, "failed to delete conversation")
		return
	}

	auditAction(c, h.audit, "conversation.deleted", map[string]string{
		"conversation_id": idAttr(conv.ID),
		"product_id":      idAttr(conv.ProductID),
	})
	c.Status(http.StatusNoContent)
}
