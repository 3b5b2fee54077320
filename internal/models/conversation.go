package models

import (
	"errors"
	"time"
)

// ErrNotParticipant is returned when a user is neither buyer nor seller of a conversation.
var ErrNotParticipant = errors.New("user is not a participant of the conversation")

// Role is a participant's side of a conversation.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Conversation is the chat thread between one buyer and one seller about one product.
type Conversation struct {
	ID                int64      `db:"id" json:"id"`
	ProductID         int64      `db:"product_id" json:"product_id"`
	BuyerID           int64      `db:"buyer_id" json:"buyer_id"`
	SellerID          int64      `db:"seller_id" json:"seller_id"`
	LastMessage       *string    `db:"last_message" json:"last_message"`
	LastMessageID     *int64     `db:"last_message_id" json:"last_message_id,omitempty"`
	LastMessageAt     *time.Time `db:"last_message_at" json:"last_message_at"`
	BuyerUnreadCount  int        `db:"buyer_unread_count" json:"buyer_unread_count"`
	SellerUnreadCount int        `db:"seller_unread_count" json:"seller_unread_count"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Participant describes how a user relates to a conversation.
type Participant struct {
	Role         Role  `json:"role"`
	OtherPartyID int64 `json:"other_party_id"`
}

// ResolveParticipant returns the caller's role and the other party.
func (c Conversation) ResolveParticipant(userID int64) (Participant, error) {
	switch userID {
	case c.BuyerID:
		return Participant{Role: RoleBuyer, OtherPartyID: c.SellerID}, nil
	case c.SellerID:
		return Participant{Role: RoleSeller, OtherPartyID: c.BuyerID}, nil
	default:
		return Participant{}, ErrNotParticipant
	}
}

// IsParticipant reports whether userID is the buyer or the seller.
func (c Conversation) IsParticipant(userID int64) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// UnreadCountFor returns the counter belonging to the caller's role.
func (c Conversation) UnreadCountFor(userID int64) (int, error) {
	p, err := c.ResolveParticipant(userID)
	if err != nil {
		return 0, err
	}
	if p.Role == RoleBuyer {
		return c.BuyerUnreadCount, nil
	}
	return c.SellerUnreadCount, nil
}

// IsLastMessage reports whether the cached preview reflects messageID.
func (c Conversation) IsLastMessage(messageID int64) bool {
	return c.LastMessageID != nil && *c.LastMessageID == messageID
}

// ConversationSummary is the per-user view used by conversation listings.
type ConversationSummary struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"product_id"`
	Role          Role       `json:"role"`
	OtherPartyID  int64      `json:"other_party_id"`
	LastMessage   *string    `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   int        `json:"unread_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SummaryFor builds the caller's view of the conversation.
func (c Conversation) SummaryFor(userID int64) (ConversationSummary, error) {
	p, err := c.ResolveParticipant(userID)
	if err != nil {
		return ConversationSummary{}, err
	}
	unread, _ := c.UnreadCountFor(userID)
	return ConversationSummary{
		ID:            c.ID,
		ProductID:     c.ProductID,
		Role:          p.Role,
		OtherPartyID:  p.OtherPartyID,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   unread,
		CreatedAt:     c.CreatedAt,
	}, nil
}
