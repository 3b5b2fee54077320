package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"marketplace-chat/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `id, user_id, type, title, message, link, data, is_read, read_at, created_at`

// NotificationRepository persists rendered notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// NotificationRepo is a sqlx-backed repository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreateNotification inserts a rendered notification.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	var out models.Notification
	err := r.db.GetContext(ctx, &out, `INSERT INTO notifications (user_id, type, title, message, link, data)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+notificationColumns, n.UserID, string(n.Type), n.Title, n.Message, n.Link, n.Data)
	return out, err
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.SelectContext(ctx, &out, `SELECT `+notificationColumns+` FROM notifications
        WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	return out, err
}

// CountUnread returns the number of unread notifications for the user.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read = FALSE`, userID)
	return count, err
}

// MarkRead flags one notification as read. Reading an already read
// notification succeeds.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
        WHERE id=$1 AND user_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE, read_at = NOW()
        WHERE user_id=$1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
