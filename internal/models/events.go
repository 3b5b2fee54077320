package models

import "strconv"

// Event types broadcast on real-time channels.
const (
	EventMessageSent      = "message.sent"
	EventMessageEdited    = "message.edited"
	EventMessageDeleted   = "message.deleted"
	EventConversationRead = "conversation.read"
	EventNotification     = "notification.created"
)

// ConversationEvent is the payload sent on conversation.{id} channels.
type ConversationEvent struct {
	Type           string   `json:"type"`
	ConversationID int64    `json:"conversation_id"`
	Message        *Message `json:"message,omitempty"`
	MessageID      int64    `json:"message_id,omitempty"`
	ReaderID       int64    `json:"reader_id,omitempty"`
}

// NotificationEvent is the payload sent on notifications.{userId} channels.
type NotificationEvent struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

// ConversationChannel is the real-time channel of a conversation.
func ConversationChannel(conversationID int64) string {
	return "conversation." + strconv.FormatInt(conversationID, 10)
}

// NotificationChannel is the private real-time channel of a user.
func NotificationChannel(userID int64) string {
	return "notifications." + strconv.FormatInt(userID, 10)
}
