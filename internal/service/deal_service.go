package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/logger"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository/common"
)

// DealRepository описывает зависимости DealService от слоя хранилища.
type DealRepository interface {
	GetByConversation(ctx context.Context, conversationID uuid.UUID) (*models.Deal, error)
	Create(ctx context.Context, deal *models.Deal) error
	SetConfirmed(ctx context.Context, dealID uuid.UUID, asOwner bool) (*models.Deal, error)
	MarkDone(ctx context.Context, dealID uuid.UUID) (*models.Deal, error)
}

// ConversationReader отдаёт диалоги для проверки участия.
type ConversationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
}

// DealService инкапсулирует двустороннее подтверждение сделки.
type DealService struct {
	repo     DealRepository
	convs    ConversationReader
	listings *ListingService
	feed     FeedPublisher
}

// NewDealService создаёт сервис сделок.
func NewDealService(repo DealRepository, convs ConversationReader, listings *ListingService, feedPub FeedPublisher) *DealService {
	return &DealService{
		repo:     repo,
		convs:    convs,
		listings: listings,
		feed:     feedPub,
	}
}

// Get возвращает сделку диалога участнику. nil — сделка ещё не начата.
func (s *DealService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*models.Deal, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	return s.repo.GetByConversation(ctx, conversationID)
}

// Confirm фиксирует подтверждение стороны. Сделка заводится лениво при
// первом подтверждении; когда подтвердили обе стороны, сделка переходит в
// done, а объявление диалога закрывается.
func (s *DealService) Confirm(ctx context.Context, userID, conversationID uuid.UUID) (*models.Deal, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	deal, err := s.repo.GetByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		deal = &models.Deal{
			ConversationID: conversationID,
			Status:         models.DealStatusConfirming,
		}
		if err := s.repo.Create(ctx, deal); err != nil {
			// Вторая сторона могла подтвердить параллельно: перечитываем.
			if !common.IsUniqueViolation(err) {
				return nil, fmt.Errorf("deal service: не удалось создать сделку: %w", err)
			}
			deal, err = s.repo.GetByConversation(ctx, conversationID)
			if err != nil {
				return nil, err
			}
			if deal == nil {
				return nil, fmt.Errorf("deal service: сделка не найдена после конфликта вставки")
			}
		}
	}

	if deal.Done() {
		return deal, nil
	}

	deal, err = s.repo.SetConfirmed(ctx, deal.ID, conv.OwnerID == userID)
	if err != nil {
		return nil, err
	}

	if models.DealStatusFor(deal.OwnerConfirmed, deal.OtherConfirmed) == models.DealStatusDone {
		deal, err = s.repo.MarkDone(ctx, deal.ID)
		if err != nil {
			return nil, err
		}

		// Каскад: объявление диалога закрывается. Сбой каскада не откатывает
		// сделку, он только логируется.
		if err := s.listings.completeByDeal(ctx, conv.PostID); err != nil {
			if logger.Log != nil {
				logger.Log.WithFields(map[string]interface{}{
					"listing_id": conv.PostID,
					"deal_id":    deal.ID,
					"error":      err.Error(),
				}).Warn("deal service: сделка завершена, но объявление не закрылось")
			}
		}
	}

	s.publishEvent(ctx, deal)

	return deal, nil
}

func (s *DealService) publishEvent(ctx context.Context, deal *models.Deal) {
	if s.feed == nil {
		return
	}
	record := map[string]any{
		"id":              deal.ID.String(),
		"conversation_id": deal.ConversationID.String(),
		"status":          deal.Status,
		"owner_confirmed": deal.OwnerConfirmed,
		"other_confirmed": deal.OtherConfirmed,
	}
	if deal.UpdatedAt != nil {
		record["updated_at"] = *deal.UpdatedAt
	}
	s.feed.Publish(ctx, feed.NewEvent("deals", feed.EventUpdate, record))
}
