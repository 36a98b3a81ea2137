package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/logger"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository"
	"github.com/xqiuyi/hall-backend/internal/validation"
)

// FeedPublisher рассылает события изменений подписчикам ленты.
type FeedPublisher interface {
	Publish(ctx context.Context, ev feed.Event)
}

// UserReader отдаёт пользователей для проверки email-входа.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ListingRepository описывает зависимости ListingService от слоя хранилища.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, f repository.ListFilter) ([]models.Listing, error)
	ListByOwner(ctx context.Context, kind string, ownerID uuid.UUID, status string, limit int) ([]models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	UpdateStatus(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, status string) error
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	UpsertContact(ctx context.Context, contact *models.ListingContact) error
	GetContact(ctx context.Context, listingID uuid.UUID) (*models.ListingContact, error)
	CreatePhoto(ctx context.Context, photo *models.ListingPhoto) error
	ListPhotos(ctx context.Context, listingID uuid.UUID) ([]models.ListingPhoto, error)
}

// PhotoStorage сохраняет файлы фотографий на диск.
type PhotoStorage interface {
	Save(ctx context.Context, ownerID uuid.UUID, filename string, data []byte) (path string, fileType string, err error)
}

// ListingService инкапсулирует публикацию и выдачу объявлений двух залов.
type ListingService struct {
	repo    ListingRepository
	users   UserReader
	cache   *ContactCache
	storage PhotoStorage
	feed    FeedPublisher
}

// NewListingService создаёт сервис объявлений.
func NewListingService(repo ListingRepository, users UserReader, cache *ContactCache, storage PhotoStorage, feedPub FeedPublisher) *ListingService {
	return &ListingService{
		repo:    repo,
		users:   users,
		cache:   cache,
		storage: storage,
		feed:    feedPub,
	}
}

// PublishInput содержит данные публикуемого объявления.
type PublishInput struct {
	Kind        string
	Title       string
	Description string
	Category    string
	AmountRaw   string
	Contact     string
}

// PublishResult возвращает итог публикации. ContactSaved=false означает, что
// объявление создано, но контакт сохранить не удалось.
type PublishResult struct {
	Listing      *models.Listing
	ContactSaved bool
}

// UpdateInput содержит редактируемые поля объявления.
type UpdateInput struct {
	Title       string
	Description string
	Category    string
	AmountRaw   string
	Contact     string
}

// ContactResult возвращает контакт объявления. Provided=false — владелец
// контакт не оставил, это нормальное состояние, а не ошибка.
type ContactResult struct {
	Contact  string
	Provided bool
}

// List возвращает активные объявления зала с фильтром по подстроке и
// категории.
func (s *ListingService) List(ctx context.Context, kind, query, category string) ([]models.Listing, error) {
	if !models.ValidListingKind(kind) {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный вид объявлений: %s", kind))
	}

	return s.repo.List(ctx, repository.ListFilter{
		Kind:     kind,
		Status:   models.ListingStatusActive,
		Query:    strings.TrimSpace(query),
		Category: category,
	})
}

// Get возвращает объявление по идентификатору.
func (s *ListingService) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// Publish создаёт объявление. Контакт сохраняется второй записью: если она
// не удалась, объявление остаётся опубликованным, а вызывающий получает
// ContactSaved=false.
func (s *ListingService) Publish(ctx context.Context, userID uuid.UUID, in PublishInput) (*PublishResult, error) {
	if !models.ValidListingKind(in.Kind) {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный вид объявлений: %s", in.Kind))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasEmail() {
		return nil, apperror.ErrEmailRequired
	}

	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	amount, err := validation.ParseAmount(in.AmountRaw)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	listing := &models.Listing{
		Kind:     in.Kind,
		OwnerID:  userID,
		Title:    strings.TrimSpace(in.Title),
		Category: validation.NormalizeCategory(in.Category, models.CategoryOther),
		Amount:   amount,
		Status:   models.ListingStatusActive,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		listing.Description = &desc
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}

	contactSaved := true
	if contact := strings.TrimSpace(in.Contact); contact != "" {
		err := s.repo.UpsertContact(ctx, &models.ListingContact{
			ListingID: listing.ID,
			OwnerID:   userID,
			Contact:   contact,
		})
		if err != nil {
			contactSaved = false
			if logger.Log != nil {
				logger.Log.WithFields(map[string]interface{}{
					"listing_id": listing.ID,
					"error":      err.Error(),
				}).Warn("listing service: объявление создано, но контакт не сохранился")
			}
		}
	}

	s.publishEvent(ctx, feed.NewEvent(feedTable(listing.Kind), feed.EventInsert, listingRecord(listing)))

	return &PublishResult{Listing: listing, ContactSaved: contactSaved}, nil
}

// Update редактирует объявление владельца.
func (s *ListingService) Update(ctx context.Context, userID, listingID uuid.UUID, in UpdateInput) (*models.Listing, error) {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}

	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	amount, err := validation.ParseAmount(in.AmountRaw)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	listing.Title = strings.TrimSpace(in.Title)
	listing.Category = validation.NormalizeCategory(in.Category, models.CategoryOther)
	listing.Amount = amount
	listing.Description = nil
	if desc := strings.TrimSpace(in.Description); desc != "" {
		listing.Description = &desc
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}

	if contact := strings.TrimSpace(in.Contact); contact != "" {
		err := s.repo.UpsertContact(ctx, &models.ListingContact{
			ListingID: listing.ID,
			OwnerID:   userID,
			Contact:   contact,
		})
		if err != nil {
			if logger.Log != nil {
				logger.Log.WithFields(map[string]interface{}{
					"listing_id": listing.ID,
					"error":      err.Error(),
				}).Warn("listing service: контакт не обновился")
			}
		} else {
			s.cache.Invalidate(ctx, listing.ID)
		}
	}

	s.publishEvent(ctx, feed.NewEvent(feedTable(listing.Kind), feed.EventUpdate, listingRecord(listing)))

	return listing, nil
}

// Delete удаляет объявление владельца.
func (s *ListingService) Delete(ctx context.Context, userID, listingID uuid.UUID) error {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != userID {
		return apperror.ErrForbidden
	}

	if err := s.repo.Delete(ctx, listingID, userID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, listingID)

	ev := feed.NewEvent(feedTable(listing.Kind), feed.EventDelete, nil)
	ev.OldRecord = listingRecord(listing)
	s.publishEvent(ctx, ev)

	return nil
}

// Complete помечает объявление завершённым.
func (s *ListingService) Complete(ctx context.Context, userID, listingID uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}

	if err := s.repo.UpdateStatus(ctx, listingID, userID, models.ListingStatusCompleted); err != nil {
		return nil, err
	}
	listing.Status = models.ListingStatusCompleted

	s.publishEvent(ctx, feed.NewEvent(feedTable(listing.Kind), feed.EventUpdate, listingRecord(listing)))

	return listing, nil
}

// My возвращает объявления владельца в зале. Пустой status означает все
// статусы.
func (s *ListingService) My(ctx context.Context, userID uuid.UUID, kind, status string) ([]models.Listing, error) {
	if !models.ValidListingKind(kind) {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный вид объявлений: %s", kind))
	}
	if status != "" && status != models.ListingStatusActive && status != models.ListingStatusCompleted {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный статус объявлений: %s", status))
	}
	return s.repo.ListByOwner(ctx, kind, userID, status, 0)
}

// Contact открывает контакт владельца объявления. Требует email-вход.
// Отсутствие контакта — штатный ответ с Provided=false.
func (s *ListingService) Contact(ctx context.Context, userID, listingID uuid.UUID) (*ContactResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasEmail() {
		return nil, apperror.ErrEmailRequired
	}

	if _, err := s.repo.GetByID(ctx, listingID); err != nil {
		return nil, err
	}

	if contact, ok := s.cache.Get(ctx, listingID); ok {
		return &ContactResult{Contact: contact, Provided: true}, nil
	}

	contact, err := s.repo.GetContact(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return &ContactResult{Provided: false}, nil
	}

	s.cache.Set(ctx, listingID, contact.Contact)

	return &ContactResult{Contact: contact.Contact, Provided: true}, nil
}

// AddPhoto сохраняет фотографию объявления на диск и прикрепляет её.
func (s *ListingService) AddPhoto(ctx context.Context, userID, listingID uuid.UUID, filename string, data []byte) (*models.ListingPhoto, error) {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}

	path, fileType, err := s.storage.Save(ctx, userID, filename, data)
	if err != nil {
		return nil, fmt.Errorf("listing service: %w", err)
	}

	photo := &models.ListingPhoto{
		ListingID: listingID,
		OwnerID:   userID,
		FilePath:  path,
		FileType:  fileType,
		FileSize:  int64(len(data)),
	}
	if err := s.repo.CreatePhoto(ctx, photo); err != nil {
		return nil, err
	}

	return photo, nil
}

// Photos возвращает фотографии объявления.
func (s *ListingService) Photos(ctx context.Context, listingID uuid.UUID) ([]models.ListingPhoto, error) {
	if _, err := s.repo.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.repo.ListPhotos(ctx, listingID)
}

// completeByDeal закрывает объявление после завершения сделки. Вызывается
// сервисом сделок без проверки владельца.
func (s *ListingService) completeByDeal(ctx context.Context, listingID uuid.UUID) error {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil
		}
		return err
	}

	if err := s.repo.UpdateStatus(ctx, listingID, uuid.Nil, models.ListingStatusCompleted); err != nil {
		return err
	}
	listing.Status = models.ListingStatusCompleted

	s.publishEvent(ctx, feed.NewEvent(feedTable(listing.Kind), feed.EventUpdate, listingRecord(listing)))

	return nil
}

func (s *ListingService) publishEvent(ctx context.Context, ev feed.Event) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, ev)
}

// feedTable возвращает имя таблицы ленты для вида объявления.
func feedTable(kind string) string {
	if kind == models.ListingKindDemand {
		return "demands"
	}
	return "services"
}

// listingRecord собирает запись события ленты из объявления.
func listingRecord(l *models.Listing) map[string]any {
	record := map[string]any{
		"id":         l.ID.String(),
		"kind":       l.Kind,
		"owner_id":   l.OwnerID.String(),
		"title":      l.Title,
		"category":   l.Category,
		"status":     l.Status,
		"created_at": l.CreatedAt,
	}
	if l.Description != nil {
		record["description"] = *l.Description
	}
	if l.Amount != nil {
		record["amount"] = *l.Amount
	}
	return record
}
