package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType enumerates the template catalog keys.
type NotificationType string

const (
	NotificationChat        NotificationType = "chat"
	NotificationLike        NotificationType = "like"
	NotificationOffer       NotificationType = "offer"
	NotificationTransaction NotificationType = "transaction"
	NotificationSystem      NotificationType = "system"
)

// NotificationData holds the placeholder values a notification was rendered with.
type NotificationData map[string]string

// Value implements driver.Valuer.
func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (d *NotificationData) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*d = NotificationData{}
		return nil
	default:
		return fmt.Errorf("unsupported notification data type %T", src)
	}
	out := NotificationData{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*d = out
	return nil
}

// Notification is a user-facing message rendered from the template catalog.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Link      string           `db:"link" json:"link"`
	Data      NotificationData `db:"data" json:"data,omitempty"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	ReadAt    *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
