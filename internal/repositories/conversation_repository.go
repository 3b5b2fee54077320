package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"marketplace-chat/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

const conversationColumns = `id, product_id, buyer_id, seller_id, last_message, last_message_id, last_message_at,
        buyer_unread_count, seller_unread_count, created_at, updated_at`

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, productID, buyerID, sellerID int64) (models.Conversation, bool, error)
	GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error)
	IncrementUnread(ctx context.Context, conversationID int64, recipient models.Role) (models.Conversation, error)
	TouchLastMessage(ctx context.Context, conversationID, messageID int64, text string, at time.Time) (models.Conversation, error)
	MarkRead(ctx context.Context, conversationID int64, reader models.Role, readerID int64) (models.Conversation, int64, error)
	DeleteConversation(ctx context.Context, conversationID int64) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetOrCreate inserts the (product, buyer, seller) conversation or fetches the
// existing row. The unique constraint makes concurrent first contact converge
// on a single row; the bool reports whether this call created it.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, productID, buyerID, sellerID int64) (models.Conversation, bool, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `INSERT INTO conversations (product_id, buyer_id, seller_id) VALUES ($1, $2, $3)
        ON CONFLICT ON CONSTRAINT conversations_product_buyer_seller_key DO NOTHING
        RETURNING `+conversationColumns, productID, buyerID, sellerID)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	err = r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations
        WHERE product_id=$1 AND buyer_id=$2 AND seller_id=$3`, productID, buyerID, sellerID)
	if err != nil {
		return models.Conversation{}, false, err
	}
	return conv, false, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns the user's conversations, most recent activity first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
        WHERE buyer_id=$1 OR seller_id=$1
        ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC`, userID)
	return convs, err
}

// IncrementUnread atomically bumps the recipient's counter.
func (r *ConversationRepo) IncrementUnread(ctx context.Context, conversationID int64, recipient models.Role) (models.Conversation, error) {
	return incrementUnread(ctx, r.db, conversationID, recipient)
}

// TouchLastMessage updates the cached preview.
func (r *ConversationRepo) TouchLastMessage(ctx context.Context, conversationID, messageID int64, text string, at time.Time) (models.Conversation, error) {
	return touchLastMessage(ctx, r.db, conversationID, messageID, text, at)
}

// MarkRead zeroes the reader's counter and flips the other party's unread
// messages in one transaction. It returns the number of messages flipped.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID int64, reader models.Role, readerID int64) (conv models.Conversation, flipped int64, err error) {
	col, err := unreadColumn(reader)
	if err != nil {
		return models.Conversation{}, 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// The conversation row is locked first; message writers follow the same order.
	query := fmt.Sprintf(`UPDATE conversations SET %s = 0, updated_at = NOW() WHERE id=$1 RETURNING %s`, col, conversationColumns)
	if err = tx.GetContext(ctx, &conv, query, conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrConversationNotFound
		}
		return models.Conversation{}, 0, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE messages SET is_read = TRUE
        WHERE conversation_id=$1 AND sender_id<>$2 AND is_read = FALSE AND state = 'active'`, conversationID, readerID)
	if err != nil {
		return models.Conversation{}, 0, err
	}
	if flipped, err = res.RowsAffected(); err != nil {
		return models.Conversation{}, 0, err
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, 0, err
	}
	return conv, flipped, nil
}

// DeleteConversation removes the conversation; messages cascade.
func (r *ConversationRepo) DeleteConversation(ctx context.Context, conversationID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, conversationID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func unreadColumn(role models.Role) (string, error) {
	switch role {
	case models.RoleBuyer:
		return "buyer_unread_count", nil
	case models.RoleSeller:
		return "seller_unread_count", nil
	default:
		return "", fmt.Errorf("unknown participant role %q", role)
	}
}

func incrementUnread(ctx context.Context, q sqlx.ExtContext, conversationID int64, recipient models.Role) (models.Conversation, error) {
	col, err := unreadColumn(recipient)
	if err != nil {
		return models.Conversation{}, err
	}
	var conv models.Conversation
	query := fmt.Sprintf(`UPDATE conversations SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id=$1 RETURNING %[2]s`, col, conversationColumns)
	if err := sqlx.GetContext(ctx, q, &conv, query, conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Conversation{}, ErrConversationNotFound
		}
		return models.Conversation{}, err
	}
	return conv, nil
}

func decrementUnread(ctx context.Context, q sqlx.ExtContext, conversationID int64, recipient models.Role) error {
	col, err := unreadColumn(recipient)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE conversations SET %[1]s = GREATEST(%[1]s - 1, 0), updated_at = NOW() WHERE id=$1`, col)
	_, err = q.ExecContext(ctx, query, conversationID)
	return err
}

func touchLastMessage(ctx context.Context, q sqlx.ExtContext, conversationID, messageID int64, text string, at time.Time) (models.Conversation, error) {
	var conv models.Conversation
	err := sqlx.GetContext(ctx, q, &conv, `UPDATE conversations
        SET last_message=$2, last_message_id=$3, last_message_at=$4, updated_at=NOW()
        WHERE id=$1 RETURNING `+conversationColumns, conversationID, text, messageID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// lockConversationOfMessage takes the conversation row lock for the message's
// conversation so that message writers and MarkRead lock rows in the same order.
func lockConversationOfMessage(ctx context.Context, tx *sqlx.Tx, messageID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := tx.GetContext(ctx, &conv, `SELECT c.id, c.product_id, c.buyer_id, c.seller_id, c.last_message, c.last_message_id,
        c.last_message_at, c.buyer_unread_count, c.seller_unread_count, c.created_at, c.updated_at
        FROM conversations c JOIN messages m ON m.conversation_id = c.id
        WHERE m.id=$1 FOR NO KEY UPDATE OF c`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrMessageNotFound
	}
	return conv, err
}
