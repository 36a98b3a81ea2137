package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type mockAuthRepo struct {
	mockUserRepo
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateMagicLink(ctx context.Context, link *models.MagicLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *mockAuthRepo) GetMagicLink(ctx context.Context, id uuid.UUID) (*models.MagicLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MagicLink), args.Error(1)
}

func (m *mockAuthRepo) MarkMagicLinkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthRepo) DeleteExpiredMagicLinks(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) EnqueueMagicLink(ctx context.Context, email, linkURL string) error {
	args := m.Called(ctx, email, linkURL)
	return args.Error(0)
}

type mockListingRepo struct {
	mock.Mock
}

func (m *mockListingRepo) Create(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	if args.Error(0) == nil && listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingRepo) List(ctx context.Context, f repository.ListFilter) ([]models.Listing, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingRepo) ListByOwner(ctx context.Context, kind string, ownerID uuid.UUID, status string, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, kind, ownerID, status, limit)
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingRepo) Update(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *mockListingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, status string) error {
	args := m.Called(ctx, id, ownerID, status)
	return args.Error(0)
}

func (m *mockListingRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *mockListingRepo) UpsertContact(ctx context.Context, contact *models.ListingContact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *mockListingRepo) GetContact(ctx context.Context, listingID uuid.UUID) (*models.ListingContact, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingContact), args.Error(1)
}

func (m *mockListingRepo) CreatePhoto(ctx context.Context, photo *models.ListingPhoto) error {
	args := m.Called(ctx, photo)
	if args.Error(0) == nil && photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockListingRepo) ListPhotos(ctx context.Context, listingID uuid.UUID) ([]models.ListingPhoto, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]models.ListingPhoto), args.Error(1)
}

type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) FindByPair(ctx context.Context, postType string, postID, a, b uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, postType, postID, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *mockConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	if args.Error(0) == nil && conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *mockConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *mockConversationRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil && msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	return args.Get(0).([]models.Message), args.Error(1)
}

type mockDealRepo struct {
	mock.Mock
}

func (m *mockDealRepo) GetByConversation(ctx context.Context, conversationID uuid.UUID) (*models.Deal, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *mockDealRepo) Create(ctx context.Context, deal *models.Deal) error {
	args := m.Called(ctx, deal)
	if args.Error(0) == nil && deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockDealRepo) SetConfirmed(ctx context.Context, dealID uuid.UUID, asOwner bool) (*models.Deal, error) {
	args := m.Called(ctx, dealID, asOwner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *mockDealRepo) MarkDone(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil && review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByDealAndReviewer(ctx context.Context, dealID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, dealID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit int) ([]models.Review, error) {
	args := m.Called(ctx, revieweeID, limit)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) CountByReviewee(ctx context.Context, revieweeID uuid.UUID) (int, error) {
	args := m.Called(ctx, revieweeID)
	return args.Int(0), args.Error(1)
}

// recordingFeed копит опубликованные события ленты.
type recordingFeed struct {
	events []feed.Event
}

func (f *recordingFeed) Publish(_ context.Context, ev feed.Event) {
	f.events = append(f.events, ev)
}

type mockPhotoStorage struct {
	mock.Mock
}

func (m *mockPhotoStorage) Save(ctx context.Context, ownerID uuid.UUID, filename string, data []byte) (string, string, error) {
	args := m.Called(ctx, ownerID, filename, data)
	return args.String(0), args.String(1), args.Error(2)
}

// emailUser собирает пользователя с email-входом для тестов.
func emailUser(id uuid.UUID) *models.User {
	email := "user@example.com"
	return &models.User{ID: id, Email: &email, IsAnonymous: false}
}

// anonUser собирает анонимного пользователя для тестов.
func anonUser(id uuid.UUID) *models.User {
	return &models.User{ID: id, IsAnonymous: true}
}
