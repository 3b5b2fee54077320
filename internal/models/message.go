package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// MessageState is the lifecycle state of a chat message.
type MessageState string

const (
	MessageActive  MessageState = "active"
	MessageDeleted MessageState = "deleted"
)

// Scan implements sql.Scanner.
func (s *MessageState) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = MessageState(v)
	case []byte:
		*s = MessageState(v)
	case nil:
		*s = MessageActive
	default:
		return fmt.Errorf("unsupported message state type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (s MessageState) Value() (driver.Value, error) {
	return string(s), nil
}

// Message is a single chat turn inside a conversation.
type Message struct {
	ID             int64        `db:"id" json:"id"`
	ConversationID int64        `db:"conversation_id" json:"conversation_id"`
	SenderID       int64        `db:"sender_id" json:"sender_id"`
	Body           string       `db:"body" json:"body"`
	IsRead         bool         `db:"is_read" json:"is_read"`
	Edited         bool         `db:"edited" json:"edited"`
	EditedAt       *time.Time   `db:"edited_at" json:"edited_at,omitempty"`
	State          MessageState `db:"state" json:"-"`
	DeletedAt      *time.Time   `db:"deleted_at" json:"-"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// IsDeleted reports whether the message is tombstoned.
func (m Message) IsDeleted() bool {
	return m.State == MessageDeleted
}

// CanEdit reports whether requesterID may edit or delete the message.
func (m Message) CanEdit(requesterID int64) bool {
	return m.SenderID == requesterID
}

// Page bounds a message listing. Zero BeforeID means "from the newest".
type Page struct {
	Limit    int
	BeforeID int64
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Normalize clamps the limit into [1, MaxPageLimit].
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.BeforeID < 0 {
		p.BeforeID = 0
	}
	return p
}
