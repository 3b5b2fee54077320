package services

import (
	"context"
	"fmt"
	"strings"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

// Notifier tells the recipient of a message that something arrived.
type Notifier interface {
	Chat(ctx context.Context, recipientID int64, senderName string, conversationID int64) (models.Notification, error)
}

// MessageLog is the ordered, append-mostly record of chat turns.
type MessageLog struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	broadcaster   broadcast.Broadcaster
	notifier      Notifier
}

// NewMessageLog builds a MessageLog.
func NewMessageLog(conversations repositories.ConversationRepository, messages repositories.MessageRepository, broadcaster broadcast.Broadcaster, notifier Notifier) *MessageLog {
	return &MessageLog{
		conversations: conversations,
		messages:      messages,
		broadcaster:   broadcaster,
		notifier:      notifier,
	}
}

type bodyInput struct {
	Body string `validate:"required,max=5000"`
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if err := validate.Struct(bodyInput{Body: body}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return body, nil
}

// CanEdit reports whether requesterID may edit or delete msg.
func (l *MessageLog) CanEdit(msg models.Message, requesterID int64) bool {
	return msg.CanEdit(requesterID)
}

// Append stores a message from sender, bumps the recipient's counter and
// moves the preview in one transaction, then broadcasts and notifies.
func (l *MessageLog) Append(ctx context.Context, conversationID int64, sender models.Actor, body string) (models.Message, error) {
	body, err := normalizeBody(body)
	if err != nil {
		return models.Message{}, err
	}

	conv, err := l.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	p, err := conv.ResolveParticipant(sender.ActorID())
	if err != nil {
		return models.Message{}, err
	}

	msg, _, err := l.messages.Append(ctx, conv.ID, sender.ActorID(), otherRole(p.Role), body)
	if err != nil {
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}
	observability.IncMessage("sent")

	broadcast.Deliver(ctx, l.broadcaster, models.ConversationChannel(conv.ID), models.ConversationEvent{
		Type:           models.EventMessageSent,
		ConversationID: conv.ID,
		Message:        &msg,
	})
	if l.notifier != nil {
		if _, err := l.notifier.Chat(ctx, p.OtherPartyID, sender.DisplayName(), conv.ID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int64("conversation_id", conv.ID).Msg("chat notification failed")
		}
	}
	return msg, nil
}

// loadOwned returns an active message of the conversation that requesterID sent.
func (l *MessageLog) loadOwned(ctx context.Context, conversationID, messageID, requesterID int64) (models.Message, error) {
	msg, err := l.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.ConversationID != conversationID || msg.IsDeleted() {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	if !msg.CanEdit(requesterID) {
		return models.Message{}, ErrForbidden
	}
	return msg, nil
}

// Edit replaces the body of the requester's own active message.
func (l *MessageLog) Edit(ctx context.Context, conversationID, messageID, requesterID int64, body string) (models.Message, error) {
	if _, err := l.loadOwned(ctx, conversationID, messageID, requesterID); err != nil {
		return models.Message{}, err
	}
	body, err := normalizeBody(body)
	if err != nil {
		return models.Message{}, err
	}

	msg, _, err := l.messages.Edit(ctx, messageID, requesterID, body)
	if err != nil {
		return models.Message{}, fmt.Errorf("edit message: %w", err)
	}
	observability.IncMessage("edited")

	broadcast.Deliver(ctx, l.broadcaster, models.ConversationChannel(conversationID), models.ConversationEvent{
		Type:           models.EventMessageEdited,
		ConversationID: conversationID,
		Message:        &msg,
	})
	return msg, nil
}

// SoftDelete tombstones the requester's own active message.
func (l *MessageLog) SoftDelete(ctx context.Context, conversationID, messageID, requesterID int64) error {
	if _, err := l.loadOwned(ctx, conversationID, messageID, requesterID); err != nil {
		return err
	}

	if _, _, err := l.messages.SoftDelete(ctx, messageID, requesterID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	observability.IncMessage("deleted")

	broadcast.Deliver(ctx, l.broadcaster, models.ConversationChannel(conversationID), models.ConversationEvent{
		Type:           models.EventMessageDeleted,
		ConversationID: conversationID,
		MessageID:      messageID,
	})
	return nil
}

// List returns a page of active messages, oldest to newest.
func (l *MessageLog) List(ctx context.Context, conversationID, requesterID int64, page models.Page) ([]models.Message, error) {
	conv, err := l.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(requesterID) {
		return nil, ErrNotParticipant
	}

	msgs, err := l.messages.ListActive(ctx, conv.ID, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}
