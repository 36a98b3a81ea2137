package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xqiuyi/hall-backend/internal/models"
)

// ReviewRepository отвечает за таблицу reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository создаёт экземпляр репозитория.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create вставляет отзыв. Ошибка уникальности (deal_id, reviewer_id)
// возвращается как есть, чтобы сервис распознал повторный отзыв.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (deal_id, reviewer_id, reviewee_id, rating, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		review.DealID, review.ReviewerID, review.RevieweeID, review.Rating, review.Text,
	).Scan(&review.ID, &review.CreatedAt); err != nil {
		return err
	}
	return nil
}

// GetByDealAndReviewer возвращает отзыв автора по сделке или (nil, nil),
// если автор ещё не оставлял отзыв.
func (r *ReviewRepository) GetByDealAndReviewer(ctx context.Context, dealID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	query := `
		SELECT id, deal_id, reviewer_id, reviewee_id, rating, text, created_at
		FROM reviews
		WHERE deal_id = $1 AND reviewer_id = $2
	`
	if err := r.db.GetContext(ctx, &review, query, dealID, reviewerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by deal and reviewer %w", err)
	}
	return &review, nil
}

// ListByReviewee возвращает последние отзывы о пользователе.
func (r *ReviewRepository) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = 20
	}
	reviews := []models.Review{}
	query := `
		SELECT id, deal_id, reviewer_id, reviewee_id, rating, text, created_at
		FROM reviews
		WHERE reviewee_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &reviews, query, revieweeID, limit); err != nil {
		return nil, fmt.Errorf("review repository: list by reviewee %w", err)
	}
	return reviews, nil
}

// CountByReviewee возвращает общее число отзывов о пользователе.
func (r *ReviewRepository) CountByReviewee(ctx context.Context, revieweeID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reviews WHERE reviewee_id = $1`
	if err := r.db.GetContext(ctx, &count, query, revieweeID); err != nil {
		return 0, fmt.Errorf("review repository: count by reviewee %w", err)
	}
	return count, nil
}
