package services

import (
	"context"
	"fmt"
	"time"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

// ConversationStore owns conversation existence, participant roles and unread bookkeeping.
type ConversationStore struct {
	repo        repositories.ConversationRepository
	broadcaster broadcast.Broadcaster
}

// NewConversationStore builds a ConversationStore.
func NewConversationStore(repo repositories.ConversationRepository, broadcaster broadcast.Broadcaster) *ConversationStore {
	return &ConversationStore{repo: repo, broadcaster: broadcaster}
}

type participantsInput struct {
	ProductID int64 `validate:"gt=0"`
	BuyerID   int64 `validate:"gt=0,nefield=SellerID"`
	SellerID  int64 `validate:"gt=0"`
}

// GetOrCreate returns the conversation for the triple, creating it with zero
// counters on first contact.
func (s *ConversationStore) GetOrCreate(ctx context.Context, productID, buyerID, sellerID int64) (models.Conversation, error) {
	if err := validate.Struct(participantsInput{ProductID: productID, BuyerID: buyerID, SellerID: sellerID}); err != nil {
		return models.Conversation{}, fmt.Errorf("%w: %v", ErrInvalidParticipants, err)
	}

	conv, created, err := s.repo.GetOrCreate(ctx, productID, buyerID, sellerID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("get or create conversation: %w", err)
	}
	if created {
		logging.Ctx(ctx).Info().Int64("conversation_id", conv.ID).Int64("product_id", productID).Msg("conversation created")
	}
	return conv, nil
}

// Get loads a conversation by id.
func (s *ConversationStore) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	return s.repo.GetConversation(ctx, conversationID)
}

// GetForParticipant loads a conversation and checks that userID belongs to it.
func (s *ConversationStore) GetForParticipant(ctx context.Context, conversationID, userID int64) (models.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.IsParticipant(userID) {
		return models.Conversation{}, ErrNotParticipant
	}
	return conv, nil
}

// ListForUser summarises every conversation the user takes part in.
func (s *ConversationStore) ListForUser(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	convs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary, err := conv.SummaryFor(userID)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// ResolveParticipant returns the caller's role and the other party.
func (s *ConversationStore) ResolveParticipant(conv models.Conversation, userID int64) (models.Participant, error) {
	return conv.ResolveParticipant(userID)
}

// UnreadCountFor returns the counter that belongs to the caller's role.
func (s *ConversationStore) UnreadCountFor(conv models.Conversation, userID int64) (int, error) {
	return conv.UnreadCountFor(userID)
}

// MarkRead zeroes the caller's counter and marks the other party's messages read.
func (s *ConversationStore) MarkRead(ctx context.Context, conv models.Conversation, userID int64) (models.Conversation, error) {
	p, err := conv.ResolveParticipant(userID)
	if err != nil {
		return models.Conversation{}, err
	}

	updated, flipped, err := s.repo.MarkRead(ctx, conv.ID, p.Role, userID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("mark conversation read: %w", err)
	}
	logging.Ctx(ctx).Debug().Int64("conversation_id", conv.ID).Int64("messages", flipped).Msg("conversation marked read")

	broadcast.Deliver(ctx, s.broadcaster, models.ConversationChannel(conv.ID), models.ConversationEvent{
		Type:           models.EventConversationRead,
		ConversationID: conv.ID,
		ReaderID:       userID,
	})
	return updated, nil
}

// IncrementUnread bumps the counter of the participant who did not send.
func (s *ConversationStore) IncrementUnread(ctx context.Context, conv models.Conversation, senderID int64) (models.Conversation, error) {
	p, err := conv.ResolveParticipant(senderID)
	if err != nil {
		return models.Conversation{}, err
	}
	return s.repo.IncrementUnread(ctx, conv.ID, otherRole(p.Role))
}

// TouchLastMessage updates the cached preview.
func (s *ConversationStore) TouchLastMessage(ctx context.Context, conv models.Conversation, messageID int64, text string, at time.Time) (models.Conversation, error) {
	return s.repo.TouchLastMessage(ctx, conv.ID, messageID, text, at)
}

// Delete hard-deletes the conversation and its messages. Participants only.
func (s *ConversationStore) Delete(ctx context.Context, conv models.Conversation, userID int64) error {
	if !conv.IsParticipant(userID) {
		return ErrNotParticipant
	}
	if err := s.repo.DeleteConversation(ctx, conv.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("conversation_id", conv.ID).Msg("conversation deleted")
	return nil
}

func otherRole(role models.Role) models.Role {
	if role == models.RoleBuyer {
		return models.RoleSeller
	}
	return models.RoleBuyer
}
