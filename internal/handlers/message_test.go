package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/models"
)

func TestPostMessageNotifiesRecipient(t *testing.T) {
	f := newFixture(t, buyer())
	f.convRepo.On("GetConversation", mock.Anything, int64(10)).Return(conversation(), nil).Once()
	f.msgRepo.On("Append", mock.Anything, int64(10), buyerID, models.RoleSeller, "hello").
		Return(models.Message{ID: 100, ConversationID: 10, SenderID: buyerID, Body: "hello"}, conversation(), nil).Once()
	f.notifRepo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == sellerID && n.Message == "Alice mengirim pesan baru" && n.Link == "/chat/10"
	})).Return(models.Notification{ID: 1, UserID: sellerID}, nil).Once()

	rec := f.do(http.MethodPost, "/conversations/10/messages", `{"body":"  hello  "}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(100), resp.ID)
	f.msgRepo.AssertExpectations(t)
	f.notifRepo.AssertExpectations(t)
	f.bcast.AssertCalled(t, "Broadcast", mock.Anything, "conversation.10", mock.Anything)
}

func TestPostMessageRejectsBlankAndOversized(t *testing.T) {
	f := newFixture(t, buyer())

	rec := f.do(http.MethodPost, "/conversations/10/messages", `{"body":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/conversations/10/messages", `{"body":"`+strings.Repeat("a", 5001)+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	f.msgRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageOutsider(t *testing.T) {
	f := newFixture(t, models.User{ID: 9, Name: "Eve", Active: true})
	f.convRepo.On("GetConversation", mock.Anything, int64(10)).Return(conversation(), nil).Once()

	rec := f.do(http.MethodPost, "/conversations/10/messages", `{"body":"hi"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListMessagesPaging(t *testing.T) {
	f := newFixture(t, seller())
	f.convRepo.On("GetConversation", mock.Anything, int64(10)).Return(conversation(), nil).Once()
	f.msgRepo.On("ListActive", mock.Anything, int64(10), models.Page{Limit: 20, BeforeID: 50}).
		Return([]models.Message{{ID: 48}, {ID: 49}}, nil).Once()

	rec := f.do(http.MethodGet, "/conversations/10/messages?limit=20&before_id=50", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, int64(48), resp.Messages[0].ID)
}

func TestListMessagesBadQuery(t *testing.T) {
	f := newFixture(t, seller())
	rec := f.do(http.MethodGet, "/conversations/10/messages?limit=ten", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditMessageByOtherParticipant(t *testing.T) {
	f := newFixture(t, buyer())
	f.msgRepo.On("GetMessage", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ConversationID: 10, SenderID: sellerID, State: models.MessageActive}, nil).Once()

	rec := f.do(http.MethodPatch, "/conversations/10/messages/100", `{"body":"changed"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.msgRepo.AssertNotCalled(t, "Edit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditDeletedMessage(t *testing.T) {
	f := newFixture(t, buyer())
	f.msgRepo.On("GetMessage", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ConversationID: 10, SenderID: buyerID, State: models.MessageDeleted}, nil).Once()

	rec := f.do(http.MethodPatch, "/conversations/10/messages/100", `{"body":"changed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditMessageSuccess(t *testing.T) {
	f := newFixture(t, buyer())
	f.msgRepo.On("GetMessage", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ConversationID: 10, SenderID: buyerID, State: models.MessageActive}, nil).Once()
	f.msgRepo.On("Edit", mock.Anything, int64(100), buyerID, "changed").
		Return(models.Message{ID: 100, ConversationID: 10, SenderID: buyerID, Body: "changed", Edited: true}, conversation(), nil).Once()

	rec := f.do(http.MethodPatch, "/conversations/10/messages/100", `{"body":"changed"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Edited)
	assert.Equal(t, "changed", resp.Body)
}

func TestDeleteMessageSuccess(t *testing.T) {
	f := newFixture(t, buyer())
	f.msgRepo.On("GetMessage", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ConversationID: 10, SenderID: buyerID, State: models.MessageActive}, nil).Once()
	f.msgRepo.On("SoftDelete", mock.Anything, int64(100), buyerID).
		Return(models.Message{ID: 100, State: models.MessageDeleted}, conversation(), nil).Once()

	rec := f.do(http.MethodDelete, "/conversations/10/messages/100", "")

	require.Equal(t, http.StatusNoContent, rec.Code)
	f.msgRepo.AssertExpectations(t)
	f.audit.AssertCalled(t, "Publish", mock.Anything, "audit.chat", mock.Anything, mock.Anything)
}

func TestDeleteMessageFromAnotherConversation(t *testing.T) {
	f := newFixture(t, buyer())
	f.msgRepo.On("GetMessage", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ConversationID: 11, SenderID: buyerID, State: models.MessageActive}, nil).Once()

	rec := f.do(http.MethodDelete, "/conversations/10/messages/100", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
