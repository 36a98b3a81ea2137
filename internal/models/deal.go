package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы сделки. Сделка создаётся лениво при первом подтверждении
// и становится done только когда подтвердили обе стороны. done — терминальный.
const (
	DealStatusConfirming = "confirming"
	DealStatusDone       = "done"
)

// Deal — запись взаимного подтверждения сделки, одна на диалог.
type Deal struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	Status         string     `db:"status" json:"status"`
	OwnerConfirmed bool       `db:"owner_confirmed" json:"owner_confirmed"`
	OtherConfirmed bool       `db:"other_confirmed" json:"other_confirmed"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// DealStatusFor — чистая функция перехода: done тогда и только тогда,
// когда подтвердили обе стороны.
func DealStatusFor(ownerConfirmed, otherConfirmed bool) string {
	if ownerConfirmed && otherConfirmed {
		return DealStatusDone
	}
	return DealStatusConfirming
}

// Done проверяет, завершена ли сделка.
func (d *Deal) Done() bool {
	return d != nil && d.Status == DealStatusDone
}

// Рейтинг отзыва всегда приводится к диапазону [1,5].
const (
	RatingMin = 1
	RatingMax = 5
)

// ClampRating молча приводит рейтинг к допустимому диапазону:
// 0 становится 1, 6 становится 5. Значения вне диапазона не отклоняются.
func ClampRating(rating int) int {
	if rating < RatingMin {
		return RatingMin
	}
	if rating > RatingMax {
		return RatingMax
	}
	return rating
}

// Review — отзыв участника завершённой сделки о второй стороне.
// На пару (deal_id, reviewer_id) допускается не более одного отзыва.
type Review struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DealID     uuid.UUID `db:"deal_id" json:"deal_id"`
	ReviewerID uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID uuid.UUID `db:"reviewee_id" json:"reviewee_id"`
	Rating     int       `db:"rating" json:"rating"`
	Text       *string   `db:"text" json:"text,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
