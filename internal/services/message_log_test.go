package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/mocks"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

type messageLogFixture struct {
	convs    *mocks.ConversationRepositoryMock
	msgs     *mocks.MessageRepositoryMock
	bcast    *mocks.BroadcasterMock
	notifier *mocks.NotifierMock
	log      *MessageLog
}

func newMessageLogFixture() messageLogFixture {
	f := messageLogFixture{
		convs:    &mocks.ConversationRepositoryMock{},
		msgs:     &mocks.MessageRepositoryMock{},
		bcast:    &mocks.BroadcasterMock{},
		notifier: &mocks.NotifierMock{},
	}
	f.log = NewMessageLog(f.convs, f.msgs, f.bcast, f.notifier)
	return f
}

var testConversation = models.Conversation{ID: 10, ProductID: 1, BuyerID: 100, SellerID: 200}

func TestAppendIncrementsRecipientAndNotifies(t *testing.T) {
	f := newMessageLogFixture()
	buyer := models.User{ID: 100, Name: "Alice", Active: true}
	stored := models.Message{ID: 1, ConversationID: 10, SenderID: 100, Body: "halo", State: models.MessageActive}

	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)
	f.msgs.On("Append", mock.Anything, int64(10), int64(100), models.RoleSeller, "halo").
		Return(stored, models.Conversation{ID: 10, SellerUnreadCount: 1}, nil).Once()
	f.bcast.On("Broadcast", mock.Anything, "conversation.10", mock.MatchedBy(func(ev models.ConversationEvent) bool {
		return ev.Type == models.EventMessageSent && ev.Message != nil && ev.Message.ID == 1
	})).Return(nil).Once()
	f.notifier.On("Chat", mock.Anything, int64(200), "Alice", int64(10)).Return(models.Notification{}, nil).Once()

	msg, err := f.log.Append(context.Background(), 10, buyer, "  halo  ")
	require.NoError(t, err)
	assert.Equal(t, stored, msg)
	f.msgs.AssertExpectations(t)
	f.bcast.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestAppendFromSellerTargetsBuyer(t *testing.T) {
	f := newMessageLogFixture()
	seller := models.User{ID: 200, Name: "Toko", Active: true}

	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)
	f.msgs.On("Append", mock.Anything, int64(10), int64(200), models.RoleBuyer, "masih ada").
		Return(models.Message{ID: 2}, models.Conversation{}, nil).Once()
	f.bcast.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Chat", mock.Anything, int64(100), "Toko", int64(10)).Return(models.Notification{}, nil).Once()

	_, err := f.log.Append(context.Background(), 10, seller, "masih ada")
	require.NoError(t, err)
	f.msgs.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestAppendRejectsOutsider(t *testing.T) {
	f := newMessageLogFixture()
	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)

	_, err := f.log.Append(context.Background(), 10, models.User{ID: 300, Active: true}, "halo")
	assert.ErrorIs(t, err, ErrNotParticipant)
	f.msgs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAppendRejectsInvalidBodies(t *testing.T) {
	f := newMessageLogFixture()
	sender := models.User{ID: 100, Active: true}

	for _, body := range []string{"", "   \n\t", strings.Repeat("a", MaxMessageLength+1)} {
		_, err := f.log.Append(context.Background(), 10, sender, body)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	}

	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)
	f.msgs.On("Append", mock.Anything, int64(10), int64(100), models.RoleSeller, mock.Anything).Return(models.Message{}, models.Conversation{}, nil)
	f.bcast.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(models.Notification{}, nil)
	_, err := f.log.Append(context.Background(), 10, sender, strings.Repeat("é", MaxMessageLength))
	assert.NoError(t, err)
}

func TestAppendSurvivesDeliveryFailures(t *testing.T) {
	f := newMessageLogFixture()
	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)
	f.msgs.On("Append", mock.Anything, int64(10), int64(100), models.RoleSeller, "halo").Return(models.Message{ID: 1}, models.Conversation{}, nil)
	f.bcast.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("relay down"))
	f.notifier.On("Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	msg, err := f.log.Append(context.Background(), 10, models.User{ID: 100, Active: true}, "halo")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
}

func TestAppendStorageFailureSkipsSideEffects(t *testing.T) {
	f := newMessageLogFixture()
	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)
	f.msgs.On("Append", mock.Anything, int64(10), int64(100), models.RoleSeller, "halo").Return(nil, nil, errors.New("tx aborted"))

	_, err := f.log.Append(context.Background(), 10, models.User{ID: 100, Active: true}, "halo")
	assert.Error(t, err)
	f.bcast.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditOnlySender(t *testing.T) {
	f := newMessageLogFixture()
	original := models.Message{ID: 5, ConversationID: 10, SenderID: 100, Body: "lama", State: models.MessageActive}
	editedAt := time.Now()
	edited := original
	edited.Body, edited.Edited, edited.EditedAt = "baru", true, &editedAt

	f.msgs.On("GetMessage", mock.Anything, int64(5)).Return(original, nil)
	f.msgs.On("Edit", mock.Anything, int64(5), int64(100), "baru").Return(edited, models.Conversation{}, nil).Once()
	f.bcast.On("Broadcast", mock.Anything, "conversation.10", mock.MatchedBy(func(ev models.ConversationEvent) bool {
		return ev.Type == models.EventMessageEdited
	})).Return(nil).Once()

	_, err := f.log.Edit(context.Background(), 10, 5, 200, "baru")
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.log.Edit(context.Background(), 10, 5, 100, "baru")
	require.NoError(t, err)
	assert.True(t, got.Edited)
	assert.NotNil(t, got.EditedAt)
	f.msgs.AssertExpectations(t)
	f.bcast.AssertExpectations(t)
}

func TestEditTombstonedOrForeignMessageIsNotFound(t *testing.T) {
	f := newMessageLogFixture()
	f.msgs.On("GetMessage", mock.Anything, int64(5)).Return(models.Message{ID: 5, ConversationID: 10, SenderID: 100, State: models.MessageDeleted}, nil)
	f.msgs.On("GetMessage", mock.Anything, int64(6)).Return(models.Message{ID: 6, ConversationID: 11, SenderID: 100, State: models.MessageActive}, nil)
	f.msgs.On("GetMessage", mock.Anything, int64(7)).Return(nil, repositories.ErrMessageNotFound)

	for _, id := range []int64{5, 6, 7} {
		_, err := f.log.Edit(context.Background(), 10, id, 100, "x")
		assert.ErrorIs(t, err, repositories.ErrMessageNotFound)
	}
}

func TestSoftDelete(t *testing.T) {
	f := newMessageLogFixture()
	msg := models.Message{ID: 5, ConversationID: 10, SenderID: 100, State: models.MessageActive}
	f.msgs.On("GetMessage", mock.Anything, int64(5)).Return(msg, nil)
	f.msgs.On("SoftDelete", mock.Anything, int64(5), int64(100)).Return(msg, models.Conversation{}, nil).Once()
	f.bcast.On("Broadcast", mock.Anything, "conversation.10", models.ConversationEvent{
		Type: models.EventMessageDeleted, ConversationID: 10, MessageID: 5,
	}).Return(nil).Once()

	assert.ErrorIs(t, f.log.SoftDelete(context.Background(), 10, 5, 200), ErrForbidden)
	require.NoError(t, f.log.SoftDelete(context.Background(), 10, 5, 100))
	f.msgs.AssertExpectations(t)
	f.bcast.AssertExpectations(t)
}

func TestListRequiresParticipantAndNormalizesPage(t *testing.T) {
	f := newMessageLogFixture()
	f.convs.On("GetConversation", mock.Anything, int64(10)).Return(testConversation, nil)
	f.msgs.On("ListActive", mock.Anything, int64(10), models.Page{Limit: models.MaxPageLimit, BeforeID: 9}).Return(nil, nil).Once()

	_, err := f.log.List(context.Background(), 10, 300, models.Page{})
	assert.ErrorIs(t, err, ErrNotParticipant)

	msgs, err := f.log.List(context.Background(), 10, 200, models.Page{Limit: 1000, BeforeID: 9})
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
	f.msgs.AssertExpectations(t)
}

func TestCanEdit(t *testing.T) {
	f := newMessageLogFixture()
	msg := models.Message{SenderID: 100}
	assert.True(t, f.log.CanEdit(msg, 100))
	assert.False(t, f.log.CanEdit(msg, 200))
}
