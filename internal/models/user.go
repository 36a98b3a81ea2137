package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает пользователя площадки.
// Email == nil означает анонимную сессию: такой пользователь может только
// просматривать залы, но не публиковать, не смотреть контакты и не участвовать
// в сделках.
type User struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Email       *string    `db:"email" json:"email,omitempty"`
	IsAnonymous bool       `db:"is_anonymous" json:"is_anonymous"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// HasEmail возвращает true, если пользователь вошёл по email (не аноним).
func (u *User) HasEmail() bool {
	return u != nil && !u.IsAnonymous && u.Email != nil && *u.Email != ""
}

// Profile описывает публичную карточку пользователя (короткое био).
type Profile struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Bio       *string   `db:"bio" json:"bio,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MagicLink хранит одноразовый секрет для входа по ссылке из письма.
// В базе лежит только bcrypt-хэш секрета, сам секрет уходит в письмо.
type MagicLink struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	SecretHash string     `db:"secret_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt     *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Expired проверяет, истекла ли ссылка к моменту now.
func (m *MagicLink) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// Used проверяет, была ли ссылка уже использована.
func (m *MagicLink) Used() bool {
	return m.UsedAt != nil
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
