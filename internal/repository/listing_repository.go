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

// ErrListingNotFound возвращается, когда объявление не найдено.
var ErrListingNotFound = errors.New("listing not found")

// ListingRepository отвечает за таблицы listings, listing_contacts и listing_photos.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository создаёт экземпляр репозитория.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// ListFilter — параметры выборки зала.
type ListFilter struct {
	Kind     string
	Status   string
	Query    string // подстрока в title/description, без учёта регистра
	Category string // точное совпадение или models.CategoryAll
	Limit    int
}

// Create создаёт объявление.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (kind, owner_id, title, description, category, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		listing.Kind, listing.OwnerID, listing.Title, listing.Description,
		listing.Category, listing.Amount, listing.Status,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
		return fmt.Errorf("listing repository: create %w", err)
	}
	return nil
}

// GetByID возвращает объявление по идентификатору.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return common.GetByID[models.Listing](ctx, r.db, "listings", id, ErrListingNotFound)
}

// List возвращает объявления зала по фильтру, новые первыми.
func (r *ListingRepository) List(ctx context.Context, f ListFilter) ([]models.Listing, error) {
	query := `
		SELECT id, kind, owner_id, title, description, category, amount, status, created_at, updated_at
		FROM listings
		WHERE kind = $1 AND status = $2
	`
	args := []interface{}{f.Kind, f.Status}

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR COALESCE(description, '') ILIKE $%d)", len(args), len(args))
	}
	if f.Category != "" && f.Category != models.CategoryAll {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("listing repository: list %w", err)
	}
	return listings, nil
}

// ListByOwner возвращает объявления владельца. Пустой status означает
// объявления во всех статусах.
func (r *ListingRepository) ListByOwner(ctx context.Context, kind string, ownerID uuid.UUID, status string, limit int) ([]models.Listing, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	query := `
		SELECT id, kind, owner_id, title, description, category, amount, status, created_at, updated_at
		FROM listings
		WHERE kind = $1 AND owner_id = $2
	`
	args := []interface{}{kind, ownerID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("listing repository: list by owner %w", err)
	}
	return listings, nil
}

// Update сохраняет правки владельца. Обновление только своей записи.
func (r *ListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET title = $3, description = $4, category = $5, amount = $6, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
	`, listing.ID, listing.OwnerID, listing.Title, listing.Description, listing.Category, listing.Amount)
	if err != nil {
		return fmt.Errorf("listing repository: update %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("listing repository: update %w", err)
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// UpdateStatus переводит объявление в новый статус. Если ownerID != uuid.Nil,
// обновление выполняется только для записи этого владельца; нулевой ownerID
// используется каскадом завершения сделки.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, status string) error {
	var (
		res sql.Result
		err error
	)
	if ownerID == uuid.Nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE listings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE listings SET status = $3, updated_at = NOW() WHERE id = $1 AND owner_id = $2`, id, ownerID, status)
	}
	if err != nil {
		return fmt.Errorf("listing repository: update status %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("listing repository: update status %w", err)
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// Delete удаляет объявление владельца вместе с контактом (FK каскад).
func (r *ListingRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM listings WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("listing repository: delete %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("listing repository: delete %w", err)
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// UpsertContact сохраняет контакт объявления (одна строка на объявление).
func (r *ListingRepository) UpsertContact(ctx context.Context, contact *models.ListingContact) error {
	query := `
		INSERT INTO listing_contacts (listing_id, owner_id, contact, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (listing_id) DO UPDATE SET contact = EXCLUDED.contact, updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		contact.ListingID, contact.OwnerID, contact.Contact,
	).Scan(&contact.UpdatedAt); err != nil {
		return fmt.Errorf("listing repository: upsert contact %w", err)
	}
	return nil
}

// GetContact возвращает контакт объявления. Отсутствие строки — нормальное
// состояние «владелец не оставил контакт», возвращается (nil, nil).
func (r *ListingRepository) GetContact(ctx context.Context, listingID uuid.UUID) (*models.ListingContact, error) {
	var contact models.ListingContact
	query := `SELECT listing_id, owner_id, contact, updated_at FROM listing_contacts WHERE listing_id = $1`
	if err := r.db.GetContext(ctx, &contact, query, listingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing repository: get contact %w", err)
	}
	return &contact, nil
}

// CreatePhoto сохраняет метаданные загруженной фотографии.
func (r *ListingRepository) CreatePhoto(ctx context.Context, photo *models.ListingPhoto) error {
	query := `
		INSERT INTO listing_photos (listing_id, owner_id, file_path, file_type, file_size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		photo.ListingID, photo.OwnerID, photo.FilePath, photo.FileType, photo.FileSize,
	).Scan(&photo.ID, &photo.CreatedAt); err != nil {
		return fmt.Errorf("listing repository: create photo %w", err)
	}
	return nil
}

// ListPhotos возвращает фотографии объявления.
func (r *ListingRepository) ListPhotos(ctx context.Context, listingID uuid.UUID) ([]models.ListingPhoto, error) {
	var photos []models.ListingPhoto
	query := `
		SELECT id, listing_id, owner_id, file_path, file_type, file_size, created_at
		FROM listing_photos
		WHERE listing_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &photos, query, listingID); err != nil {
		return nil, fmt.Errorf("listing repository: list photos %w", err)
	}
	return photos, nil
}
