package dto

import (
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/service"
)

// ErrorResponse — стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse — стандартный успешный ответ с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse — ответ на вход и создание анонимной сессии.
type AuthResponse struct {
	User    *models.User       `json:"user"`
	Profile *models.Profile    `json:"profile,omitempty"`
	Tokens  *service.TokenPair `json:"tokens"`
}

// PublishResponse — ответ на публикацию объявления. contact_saved=false
// означает частичный успех: объявление создано, контакт не записался.
type PublishResponse struct {
	Listing      *models.Listing `json:"listing"`
	ContactSaved bool            `json:"contact_saved"`
}

// ContactResponse — ответ на открытие контакта. Отсутствие контакта —
// штатное состояние, а не ошибка.
type ContactResponse struct {
	Contact  string `json:"contact"`
	Provided bool   `json:"provided"`
}

// DealResponse — ответ со сделкой диалога. Deal=nil — сделка не начата.
type DealResponse struct {
	Deal *models.Deal `json:"deal"`
}
