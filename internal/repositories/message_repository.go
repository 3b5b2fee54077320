package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"marketplace-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, conversation_id, sender_id, body, is_read, edited, edited_at, state, deleted_at, created_at`

const pqForeignKeyViolation = "23503"

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Append(ctx context.Context, conversationID, senderID int64, recipient models.Role, body string) (models.Message, models.Conversation, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	ListActive(ctx context.Context, conversationID int64, page models.Page) ([]models.Message, error)
	Edit(ctx context.Context, messageID, senderID int64, body string) (models.Message, models.Conversation, error)
	SoftDelete(ctx context.Context, messageID, senderID int64) (models.Message, models.Conversation, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores the message, bumps the recipient's unread counter and moves
// the conversation preview in a single transaction.
func (r *MessageRepo) Append(ctx context.Context, conversationID, senderID int64, recipient models.Role, body string) (msg models.Message, conv models.Conversation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.GetContext(ctx, &msg, `INSERT INTO messages (conversation_id, sender_id, body) VALUES ($1, $2, $3)
        RETURNING `+messageColumns, conversationID, senderID, body)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			err = ErrConversationNotFound
		}
		return models.Message{}, models.Conversation{}, err
	}

	if _, err = incrementUnread(ctx, tx, conversationID, recipient); err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	if conv, err = touchLastMessage(ctx, tx, conversationID, msg.ID, msg.Body, msg.CreatedAt); err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	return msg, conv, nil
}

// GetMessage retrieves a single message regardless of state.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListActive returns up to page.Limit active messages older than page.BeforeID,
// ordered oldest to newest.
func (r *MessageRepo) ListActive(ctx context.Context, conversationID int64, page models.Page) ([]models.Message, error) {
	page = page.Normalize()
	args := []any{conversationID}
	cursor := ""
	if page.BeforeID > 0 {
		args = append(args, page.BeforeID)
		cursor = fmt.Sprintf(" AND id < $%d", len(args))
	}
	args = append(args, page.Limit)
	query := fmt.Sprintf(`SELECT %s FROM messages
        WHERE conversation_id=$1 AND state='active'%s
        ORDER BY id DESC LIMIT $%d`, messageColumns, cursor, len(args))

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Edit replaces the body of an active message owned by senderID. When the
// message is the conversation preview, the preview follows the new text.
func (r *MessageRepo) Edit(ctx context.Context, messageID, senderID int64, body string) (msg models.Message, conv models.Conversation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if conv, err = lockConversationOfMessage(ctx, tx, messageID); err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	err = tx.GetContext(ctx, &msg, `UPDATE messages SET body=$3, edited=TRUE, edited_at=NOW()
        WHERE id=$1 AND sender_id=$2 AND state='active'
        RETURNING `+messageColumns, messageID, senderID, body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrMessageNotFound
		}
		return models.Message{}, models.Conversation{}, err
	}

	if conv.IsLastMessage(msg.ID) {
		if conv, err = touchLastMessage(ctx, tx, conv.ID, msg.ID, msg.Body, *msg.EditedAt); err != nil {
			return models.Message{}, models.Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	return msg, conv, nil
}

// SoftDelete tombstones an active message owned by senderID. An unread
// tombstone no longer counts toward the recipient's counter, and a tombstoned
// preview falls back to the newest remaining active message.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, senderID int64) (msg models.Message, conv models.Conversation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if conv, err = lockConversationOfMessage(ctx, tx, messageID); err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	err = tx.GetContext(ctx, &msg, `UPDATE messages SET state='deleted', deleted_at=NOW()
        WHERE id=$1 AND sender_id=$2 AND state='active'
        RETURNING `+messageColumns, messageID, senderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrMessageNotFound
		}
		return models.Message{}, models.Conversation{}, err
	}

	if !msg.IsRead {
		participant, perr := conv.ResolveParticipant(senderID)
		if perr != nil {
			err = perr
			return models.Message{}, models.Conversation{}, err
		}
		recipient := models.RoleSeller
		if participant.Role == models.RoleSeller {
			recipient = models.RoleBuyer
		}
		if err = decrementUnread(ctx, tx, conv.ID, recipient); err != nil {
			return models.Message{}, models.Conversation{}, err
		}
	}

	if conv.IsLastMessage(msg.ID) {
		_, err = tx.ExecContext(ctx, `UPDATE conversations
            SET (last_message, last_message_id, last_message_at) = (
                SELECT body, id, created_at FROM messages
                WHERE conversation_id=$1 AND state='active'
                ORDER BY id DESC LIMIT 1),
            updated_at=NOW()
            WHERE id=$1`, conv.ID)
		if err != nil {
			return models.Message{}, models.Conversation{}, err
		}
	}

	err = tx.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conv.ID)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	return msg, conv, nil
}
