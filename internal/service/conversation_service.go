package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository/common"
	"github.com/xqiuyi/hall-backend/internal/validation"
)

// ConversationRepository описывает зависимости ConversationService от слоя
// хранилища.
type ConversationRepository interface {
	FindByPair(ctx context.Context, postType string, postID, a, b uuid.UUID) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
}

// ListingReader отдаёт объявления для определения владельца.
type ListingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ProfileReader отдаёт профили для карточки собеседника.
type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// ConversationService инкапсулирует диалоги и сообщения.
type ConversationService struct {
	repo     ConversationRepository
	listings ListingReader
	users    ProfileReader
	feed     FeedPublisher
}

// NewConversationService создаёт сервис диалогов.
func NewConversationService(repo ConversationRepository, listings ListingReader, users ProfileReader, feedPub FeedPublisher) *ConversationService {
	return &ConversationService{
		repo:     repo,
		listings: listings,
		users:    users,
		feed:     feedPub,
	}
}

// CounterpartCard — карточка второй стороны диалога.
type CounterpartCard struct {
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile,omitempty"`
}

// Resolve находит или создаёт диалог по объявлению. Пара участников
// неупорядоченная: повторные вызовы с любой стороны возвращают тот же диалог.
// Диалог с самим собой не создаётся.
func (s *ConversationService) Resolve(ctx context.Context, userID, listingID uuid.UUID) (*models.Conversation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasEmail() {
		return nil, apperror.ErrEmailRequired
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID == userID {
		return nil, apperror.ErrSelfConversation
	}

	conv, err := s.repo.FindByPair(ctx, listing.Kind, listing.ID, userID, listing.OwnerID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	conv = &models.Conversation{
		PostType: listing.Kind,
		PostID:   listing.ID,
		OwnerID:  userID,
		OtherID:  listing.OwnerID,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		// Вторая сторона могла создать диалог параллельно: при нарушении
		// уникальности перечитываем существующую строку.
		if common.IsUniqueViolation(err) {
			existing, findErr := s.repo.FindByPair(ctx, listing.Kind, listing.ID, userID, listing.OwnerID)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("conversation service: не удалось создать диалог: %w", err)
	}

	if s.feed != nil {
		s.feed.Publish(ctx, feed.NewEvent("conversations", feed.EventInsert, map[string]any{
			"id":        conv.ID.String(),
			"post_type": conv.PostType,
			"post_id":   conv.PostID.String(),
			"owner_id":  conv.OwnerID.String(),
			"other_id":  conv.OtherID.String(),
		}))
	}

	return conv, nil
}

// My возвращает диалоги пользователя, свежие первыми.
func (s *ConversationService) My(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.repo.ListByUser(ctx, userID, 0)
}

// Get возвращает диалог участнику.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return conv, nil
}

// Messages возвращает журнал сообщений диалога участнику.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]models.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID, 0)
}

// SendMessage дописывает сообщение в журнал диалога и публикует событие
// ленты для подписчиков этого диалога.
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*models.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if err := validation.ValidateMessageContent(content); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        strings.TrimSpace(content),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.Publish(ctx, feed.NewEvent("messages", feed.EventInsert, map[string]any{
			"id":              msg.ID.String(),
			"conversation_id": msg.ConversationID.String(),
			"sender_id":       msg.SenderID.String(),
			"content":         msg.Content,
			"created_at":      msg.CreatedAt,
		}))
	}

	return msg, nil
}

// Counterpart возвращает карточку второй стороны диалога.
func (s *ConversationService) Counterpart(ctx context.Context, userID, conversationID uuid.UUID) (*CounterpartCard, error) {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	other, err := s.users.GetByID(ctx, conv.Counterpart(userID))
	if err != nil {
		return nil, err
	}

	profile, err := s.users.GetProfile(ctx, other.ID)
	if err != nil {
		return nil, err
	}

	return &CounterpartCard{User: other, Profile: profile}, nil
}
