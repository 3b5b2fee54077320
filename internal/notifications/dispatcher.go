package notifications

import (
	"context"
	"errors"
	"fmt"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

var (
	// ErrInvalidType is returned for a type outside the catalog.
	ErrInvalidType = errors.New("invalid notification type")
	// ErrInvalidRecipient is returned when the target user id is not positive.
	ErrInvalidRecipient = errors.New("invalid notification recipient")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Dispatcher creates notifications and pushes them to the recipient.
type Dispatcher struct {
	catalog     Catalog
	repo        repositories.NotificationRepository
	broadcaster broadcast.Broadcaster
}

// NewDispatcher builds a Dispatcher around an injected catalog.
func NewDispatcher(catalog Catalog, repo repositories.NotificationRepository, broadcaster broadcast.Broadcaster) *Dispatcher {
	return &Dispatcher{catalog: catalog, repo: repo, broadcaster: broadcaster}
}

// Create renders, persists and publishes a notification for userID. The
// publish is fire-and-forget.
func (d *Dispatcher) Create(ctx context.Context, userID int64, t models.NotificationType, data map[string]string) (models.Notification, error) {
	tmpl, ok := d.catalog.Lookup(t)
	if !ok {
		return models.Notification{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	if userID <= 0 {
		return models.Notification{}, ErrInvalidRecipient
	}

	title, message, link := tmpl.Render(data)
	n, err := d.repo.CreateNotification(ctx, models.Notification{
		UserID:  userID,
		Type:    t,
		Title:   title,
		Message: message,
		Link:    link,
		Data:    models.NotificationData(data),
	})
	if err != nil {
		return models.Notification{}, fmt.Errorf("store notification: %w", err)
	}
	observability.IncNotificationCreated(string(t))
	logging.Ctx(ctx).Debug().Int64("notification_id", n.ID).Int64("recipient", userID).Str("type", string(t)).Msg("notification created")

	broadcast.Deliver(ctx, d.broadcaster, models.NotificationChannel(userID), models.NotificationEvent{
		Type:         models.EventNotification,
		Notification: &n,
	})
	return n, nil
}

// List returns the user's notifications, newest first.
func (d *Dispatcher) List(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := d.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return d.repo.CountUnread(ctx, userID)
}

func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, userID int64) error {
	return d.repo.MarkRead(ctx, notificationID, userID)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return d.repo.MarkAllRead(ctx, userID)
}
