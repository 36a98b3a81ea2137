package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository/common"
)

// ReviewRepository описывает зависимости ReviewService от слоя хранилища.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByDealAndReviewer(ctx context.Context, dealID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit int) ([]models.Review, error)
	CountByReviewee(ctx context.Context, revieweeID uuid.UUID) (int, error)
}

// DealRepoForReview отдаёт сделку диалога для проверки завершённости.
type DealRepoForReview interface {
	GetByConversation(ctx context.Context, conversationID uuid.UUID) (*models.Deal, error)
}

// ReviewService инкапсулирует отзывы по завершённым сделкам.
type ReviewService struct {
	repo  ReviewRepository
	deals DealRepoForReview
	convs ConversationReader
	users UserReader
}

// NewReviewService создаёт сервис отзывов.
func NewReviewService(repo ReviewRepository, deals DealRepoForReview, convs ConversationReader, users UserReader) *ReviewService {
	return &ReviewService{
		repo:  repo,
		deals: deals,
		convs: convs,
		users: users,
	}
}

// UserReviews — последние отзывы о пользователе и их общее число.
type UserReviews struct {
	Reviews []models.Review `json:"reviews"`
	Total   int             `json:"total"`
}

// CreateReview создаёт отзыв о второй стороне диалога. Допускается только
// после завершения сделки, по одному отзыву от каждой стороны. Оценка вне
// шкалы 1..5 молча приводится к границе.
func (s *ReviewService) CreateReview(ctx context.Context, reviewerID, conversationID uuid.UUID, rating int, text string) (*models.Review, error) {
	reviewer, err := s.users.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.HasEmail() {
		return nil, apperror.ErrEmailRequired
	}

	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(reviewerID) {
		return nil, apperror.ErrForbidden
	}

	deal, err := s.deals.GetByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if deal == nil || !deal.Done() {
		return nil, apperror.New(apperror.ErrCodeConflict, "отзыв можно оставить только после завершения сделки")
	}

	revieweeID := conv.Counterpart(reviewerID)

	existing, err := s.repo.GetByDealAndReviewer(ctx, deal.ID, reviewerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyReviewed
	}

	review := &models.Review{
		DealID:     deal.ID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Rating:     models.ClampRating(rating),
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		review.Text = &trimmed
	}

	if err := s.repo.Create(ctx, review); err != nil {
		// Повторная отправка могла проскочить проверку выше.
		if common.IsUniqueViolation(err) {
			return nil, apperror.ErrAlreadyReviewed
		}
		return nil, err
	}

	return review, nil
}

// ForUser возвращает последние отзывы о пользователе и их общее число.
func (s *ReviewService) ForUser(ctx context.Context, userID uuid.UUID) (*UserReviews, error) {
	reviews, err := s.repo.ListByReviewee(ctx, userID, 20)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountByReviewee(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserReviews{Reviews: reviews, Total: total}, nil
}

// MyReview возвращает отзыв пользователя по диалогу или nil, если отзыв ещё
// не оставлен.
func (s *ReviewService) MyReview(ctx context.Context, userID, conversationID uuid.UUID) (*models.Review, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	deal, err := s.deals.GetByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, nil
	}

	return s.repo.GetByDealAndReviewer(ctx, deal.ID, userID)
}
