package models

import (
	"time"

	"github.com/google/uuid"
)

// Виды объявлений: услуга («я могу») и потребность («мне нужно»).
const (
	ListingKindService = "service"
	ListingKindDemand  = "demand"
)

// Статусы объявления.
const (
	ListingStatusActive    = "active"
	ListingStatusCompleted = "completed"
)

// CategoryOther — категория по умолчанию; в базе категории хранятся
// так же, как их вводит публикующий, фильтрация идёт по точному совпадению.
const CategoryOther = "其他"

// CategoryAll — стабильное значение «все категории» в фильтре.
const CategoryAll = "__all__"

// ValidListingKind проверяет вид объявления.
func ValidListingKind(kind string) bool {
	return kind == ListingKindService || kind == ListingKindDemand
}

// Listing описывает объявление в зале услуг или зале потребностей.
// Amount — цена для услуги и бюджет для потребности; nil, если не указана.
type Listing struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Kind        string    `db:"kind" json:"kind"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Category    string    `db:"category" json:"category"`
	Amount      *float64  `db:"amount" json:"amount,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ListingContact хранит контакт владельца объявления (微信/телефон).
// Контакт виден только пользователям с email-входом.
type ListingContact struct {
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Contact   string    `db:"contact" json:"contact"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ListingPhoto описывает фотографию, прикреплённую к объявлению.
type ListingPhoto struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	FilePath  string    `db:"file_path" json:"file_path"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
