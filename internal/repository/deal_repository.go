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

// ErrDealNotFound возвращается, когда сделка не найдена.
var ErrDealNotFound = errors.New("deal not found")

// DealRepository отвечает за таблицу deals.
type DealRepository struct {
	db *sqlx.DB
}

// NewDealRepository создаёт экземпляр репозитория.
func NewDealRepository(db *sqlx.DB) *DealRepository {
	return &DealRepository{db: db}
}

// GetByConversation возвращает сделку диалога. Отсутствие строки —
// нормальное состояние «сделка не начата», возвращается (nil, nil).
func (r *DealRepository) GetByConversation(ctx context.Context, conversationID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	query := `
		SELECT id, conversation_id, status, owner_confirmed, other_confirmed, updated_at
		FROM deals
		WHERE conversation_id = $1
	`
	if err := r.db.GetContext(ctx, &deal, query, conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("deal repository: get by conversation %w", err)
	}
	return &deal, nil
}

// GetByID возвращает сделку по идентификатору.
func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return common.GetByID[models.Deal](ctx, r.db, "deals", id, ErrDealNotFound)
}

// Create вставляет сделку со сброшенными флагами. При конфликте по
// conversation_id (две стороны нажали одновременно) ошибка уходит вызывающему,
// который перечитывает существующую строку.
func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) error {
	query := `
		INSERT INTO deals (conversation_id, status, owner_confirmed, other_confirmed, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		deal.ConversationID, deal.Status, deal.OwnerConfirmed, deal.OtherConfirmed,
	).Scan(&deal.ID, &deal.UpdatedAt); err != nil {
		return err
	}
	return nil
}

// SetConfirmed выставляет флаг стороны и перезаписывает статус как confirming
// со свежей отметкой времени. Возвращает строку после записи.
func (r *DealRepository) SetConfirmed(ctx context.Context, dealID uuid.UUID, asOwner bool) (*models.Deal, error) {
	column := "other_confirmed"
	if asOwner {
		column = "owner_confirmed"
	}
	query := fmt.Sprintf(`
		UPDATE deals
		SET %s = TRUE, status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, conversation_id, status, owner_confirmed, other_confirmed, updated_at
	`, column)

	var deal models.Deal
	if err := r.db.GetContext(ctx, &deal, query, dealID, models.DealStatusConfirming); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("deal repository: set confirmed %w", err)
	}
	return &deal, nil
}

// MarkDone переводит сделку в терминальный статус done.
func (r *DealRepository) MarkDone(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	query := `
		UPDATE deals
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, conversation_id, status, owner_confirmed, other_confirmed, updated_at
	`
	if err := r.db.GetContext(ctx, &deal, query, dealID, models.DealStatusDone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("deal repository: mark done %w", err)
	}
	return &deal, nil
}
