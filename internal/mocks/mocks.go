package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) GetOrCreate(ctx context.Context, productID, buyerID, sellerID int64) (models.Conversation, bool, error) {
	args := m.Called(ctx, productID, buyerID, sellerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) IncrementUnread(ctx context.Context, conversationID int64, recipient models.Role) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, recipient)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) TouchLastMessage(ctx context.Context, conversationID, messageID int64, text string, at time.Time) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, messageID, text, at)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID int64, reader models.Role, readerID int64) (models.Conversation, int64, error) {
	args := m.Called(ctx, conversationID, reader, readerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Get(1).(int64), args.Error(2)
}

func (m *ConversationRepositoryMock) DeleteConversation(ctx context.Context, conversationID int64) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, conversationID, senderID int64, recipient models.Role, body string) (models.Message, models.Conversation, error) {
	args := m.Called(ctx, conversationID, senderID, recipient, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	var conv models.Conversation
	if val := args.Get(1); val != nil {
		conv = val.(models.Conversation)
	}
	return msg, conv, args.Error(2)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListActive(ctx context.Context, conversationID int64, page models.Page) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, page)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Edit(ctx context.Context, messageID, senderID int64, body string) (models.Message, models.Conversation, error) {
	args := m.Called(ctx, messageID, senderID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	var conv models.Conversation
	if val := args.Get(1); val != nil {
		conv = val.(models.Conversation)
	}
	return msg, conv, args.Error(2)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID, senderID int64) (models.Message, models.Conversation, error) {
	args := m.Called(ctx, messageID, senderID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	var conv models.Conversation
	if val := args.Get(1); val != nil {
		conv = val.(models.Conversation)
	}
	return msg, conv, args.Error(2)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var out models.Notification
	switch val := args.Get(0).(type) {
	case models.Notification:
		out = val
	case func(context.Context, models.Notification) models.Notification:
		out = val(ctx, n)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	var out []models.Notification
	if val := args.Get(0); val != nil {
		out = val.([]models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) CountUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID, userID int64) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Broadcast(ctx context.Context, channel string, event any) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Chat(ctx context.Context, recipientID int64, senderName string, conversationID int64) (models.Notification, error) {
	args := m.Called(ctx, recipientID, senderName, conversationID)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ broadcast.Broadcaster = (*BroadcasterMock)(nil)
var _ interface {
	Chat(context.Context, int64, string, int64) (models.Notification, error)
} = (*NotifierMock)(nil)
