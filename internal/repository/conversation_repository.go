package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/repository/common"
)

// ErrConversationNotFound возвращается, когда диалог не найден.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository отвечает за таблицы conversations и messages.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository создаёт экземпляр репозитория.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByPair ищет диалог по объявлению и неупорядоченной паре участников
// (A-B или B-A). Отсутствие — не ошибка, возвращается (nil, nil).
func (r *ConversationRepository) FindByPair(ctx context.Context, postType string, postID, a, b uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	query := `
		SELECT id, post_type, post_id, owner_id, other_id, created_at
		FROM conversations
		WHERE post_type = $1 AND post_id = $2
		  AND ((owner_id = $3 AND other_id = $4) OR (owner_id = $4 AND other_id = $3))
	`
	if err := r.db.GetContext(ctx, &conv, query, postType, postID, a, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation repository: find by pair %w", err)
	}
	return &conv, nil
}

// Create вставляет новый диалог. При конфликте уникальной пары возвращает
// ошибку базы как есть — вызывающий различает её через common.IsUniqueViolation.
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (post_type, post_id, owner_id, other_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		conv.PostType, conv.PostID, conv.OwnerID, conv.OtherID,
	).Scan(&conv.ID, &conv.CreatedAt); err != nil {
		return err
	}
	return nil
}

// GetByID возвращает диалог по идентификатору.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return common.GetByID[models.Conversation](ctx, r.db, "conversations", id, ErrConversationNotFound)
}

// ListByUser возвращает диалоги пользователя с любой стороны, новые первыми.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var convs []models.Conversation
	query := `
		SELECT id, post_type, post_id, owner_id, other_id, created_at
		FROM conversations
		WHERE owner_id = $1 OR other_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &convs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("conversation repository: list by user %w", err)
	}
	return convs, nil
}

// CreateMessage дописывает сообщение в журнал диалога.
func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		msg.ConversationID, msg.SenderID, msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("conversation repository: create message %w", err)
	}
	return nil
}

// ListMessages возвращает сообщения диалога по времени создания.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var msgs []models.Message
	query := `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit); err != nil {
		return nil, fmt.Errorf("conversation repository: list messages %w", err)
	}
	return msgs, nil
}
