package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/mocks"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/notifications"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
)

const (
	buyerID  int64 = 1
	sellerID int64 = 2
)

type fixture struct {
	convRepo  *mocks.ConversationRepositoryMock
	msgRepo   *mocks.MessageRepositoryMock
	notifRepo *mocks.NotificationRepositoryMock
	bcast     *mocks.BroadcasterMock
	audit     *mocks.PublisherMock
	router    *gin.Engine
}

// newFixture wires real services over mocked repositories and authenticates
// every request as actor.
func newFixture(t *testing.T, actor models.Actor) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		convRepo:  &mocks.ConversationRepositoryMock{},
		msgRepo:   &mocks.MessageRepositoryMock{},
		notifRepo: &mocks.NotificationRepositoryMock{},
		bcast:     &mocks.BroadcasterMock{},
		audit:     &mocks.PublisherMock{},
	}
	f.bcast.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.audit.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	emitter := telemetry.NewAuditEmitter(f.audit, "audit.chat", "marketplace-chat", "test")
	dispatcher := notifications.NewDispatcher(notifications.NewCatalog(), f.notifRepo, f.bcast)
	store := services.NewConversationStore(f.convRepo, f.bcast)
	msgLog := services.NewMessageLog(f.convRepo, f.msgRepo, f.bcast, dispatcher)

	ch := NewConversationHandler(store, emitter)
	mh := NewMessageHandler(msgLog, emitter)
	nh := NewNotificationHandler(dispatcher, emitter)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, actor.ActorID())
		c.Set(middleware.ActorKey, actor)
		c.Next()
	})
	r.POST("/conversations", ch.StartConversation)
	r.GET("/conversations", ch.ListConversations)
	r.GET("/conversations/:conversation_id", ch.GetConversation)
	r.DELETE("/conversations/:conversation_id", ch.DeleteConversation)
	r.POST("/conversations/:conversation_id/read", ch.MarkRead)
	r.GET("/conversations/:conversation_id/messages", mh.ListMessages)
	r.POST("/conversations/:conversation_id/messages", mh.PostMessage)
	r.PATCH("/conversations/:conversation_id/messages/:message_id", mh.EditMessage)
	r.DELETE("/conversations/:conversation_id/messages/:message_id", mh.DeleteMessage)
	r.GET("/notifications", nh.ListNotifications)
	r.GET("/notifications/unread-count", nh.UnreadCount)
	r.POST("/notifications/read-all", nh.MarkAllRead)
	r.POST("/notifications/:notification_id/read", nh.MarkRead)
	r.POST("/notifications", middleware.RequireAdmin(), nh.SendNotification)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func buyer() models.Actor  { return models.User{ID: buyerID, Name: "Alice", Active: true} }
func seller() models.Actor { return models.User{ID: sellerID, Name: "Bob", Active: true} }

func conversation() models.Conversation {
	return models.Conversation{ID: 10, ProductID: 5, BuyerID: buyerID, SellerID: sellerID}
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrNotParticipant, http.StatusForbidden},
		{services.ErrForbidden, http.StatusForbidden},
		{repositories.ErrConversationNotFound, http.StatusNotFound},
		{repositories.ErrMessageNotFound, http.StatusNotFound},
		{repositories.ErrNotificationNotFound, http.StatusNotFound},
		{notifications.ErrInvalidType, http.StatusBadRequest},
		{notifications.ErrInvalidRecipient, http.StatusBadRequest},
		{services.ErrInvalidMessage, http.StatusBadRequest},
		{services.ErrInvalidParticipants, http.StatusBadRequest},
		{services.ErrConcurrentUpdateConflict, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, tc.err, "boom")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestInvalidPathID(t *testing.T) {
	f := newFixture(t, buyer())
	rec := f.do(http.MethodGet, "/conversations/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodDelete, "/conversations/10/messages/0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
