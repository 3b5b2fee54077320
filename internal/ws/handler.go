package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

const (
	KindConversation  = "conversation"
	KindNotifications = "notifications"
)

// ConversationLookup loads conversations for channel authorization.
type ConversationLookup interface {
	GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error)
}

// ChannelAuthorizer decides whether a user may subscribe to a channel.
type ChannelAuthorizer interface {
	CanSubscribe(userID int64, channel string, conv *models.Conversation) (bool, error)
}

// Handler upgrades authenticated requests and subscribes them to a channel.
type Handler struct {
	hub           *Hub
	tokens        auth.TokenParser
	authorizer    ChannelAuthorizer
	conversations ConversationLookup
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, tokens auth.TokenParser, authorizer ChannelAuthorizer, conversations ConversationLookup) *Handler {
	return &Handler{hub: hub, tokens: tokens, authorizer: authorizer, conversations: conversations}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Conversation serves /ws/conversations/:conversation_id.
func (h *Handler) Conversation(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("marketplace-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("ws.kind", KindConversation), attribute.Int64("conversation.id", conversationID))
	c.Request = c.Request.WithContext(ctx)

	actor, ok := h.authenticate(c)
	if !ok {
		return
	}

	conv, err := h.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	channel := models.ConversationChannel(conversationID)
	if !h.authorize(c, actor.ActorID(), channel, &conv) {
		return
	}
	h.serve(c, KindConversation, channel, actor.ActorID(), span.SpanContext().TraceID().String())
}

// Notifications serves /ws/notifications for the caller's private channel.
func (h *Handler) Notifications(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("ws.kind", KindNotifications))
	c.Request = c.Request.WithContext(ctx)

	actor, ok := h.authenticate(c)
	if !ok {
		return
	}

	channel := models.NotificationChannel(actor.ActorID())
	if !h.authorize(c, actor.ActorID(), channel, nil) {
		return
	}
	h.serve(c, KindNotifications, channel, actor.ActorID(), span.SpanContext().TraceID().String())
}

func (h *Handler) authenticate(c *gin.Context) (models.Actor, bool) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return nil, false
	}
	claims, err := h.tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil, false
	}
	actor := claims.Actor()
	if !actor.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is not active"})
		return nil, false
	}
	return actor, true
}

func (h *Handler) authorize(c *gin.Context, userID int64, channel string, conv *models.Conversation) bool {
	allowed, err := h.authorizer.CanSubscribe(userID, channel, conv)
	if err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("channel", channel).Msg("channel authorization failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization failed"})
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for channel"})
		return false
	}
	return true
}

func (h *Handler) serve(c *gin.Context, kind, channel string, userID int64, traceID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        kind,
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := h.hub.Subscribe(channel, conn, info)
	headers := observability.BuildHeaders(requestID, traceID)

	// The request context ends with the handler; lifecycle events outlive it.
	ctx := context.WithoutCancel(c.Request.Context())
	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	_ = observability.PublishEvent(ctx, observability.WSRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   lifecyclePayload(channel, "ws_connect", info, ""),
	}, headers)

	go func() {
		var closeReason string
		defer func() {
			h.hub.Unsubscribe(channel, client)
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			_ = observability.PublishEvent(ctx, observability.WSRoutingKey(kind), observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   lifecyclePayload(channel, "ws_disconnect", info, closeReason),
			}, headers)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
					_ = observability.PublishEvent(ctx, observability.WSRoutingKey(kind), observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   lifecyclePayload(channel, "ws_error", info, closeReason),
					}, headers)
				}
				return
			}
		}
	}()
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}
