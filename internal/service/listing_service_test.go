package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository"
)

func newListingService(repo *mockListingRepo, users *mockUserRepo, feedPub FeedPublisher) *ListingService {
	return NewListingService(repo, users, NewContactCache(nil), nil, feedPub)
}

func TestListingService_Publish_Success(t *testing.T) {
	repo := new(mockListingRepo)
	users := new(mockUserRepo)
	feedPub := &recordingFeed{}
	svc := newListingService(repo, users, feedPub)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)
	repo.On("UpsertContact", ctx, mock.AnythingOfType("*models.ListingContact")).Return(nil)

	result, err := svc.Publish(ctx, userID, PublishInput{
		Kind:      models.ListingKindService,
		Title:     "修水管",
		Category:  "维修",
		AmountRaw: "200",
		Contact:   "wx: shuigong",
	})

	assert.NoError(t, err)
	assert.True(t, result.ContactSaved)
	assert.Equal(t, "修水管", result.Listing.Title)
	assert.Equal(t, "维修", result.Listing.Category)
	assert.Equal(t, 200.0, *result.Listing.Amount)
	assert.Equal(t, models.ListingStatusActive, result.Listing.Status)

	// Публикация попадает в ленту изменений.
	assert.Len(t, feedPub.events, 1)
	assert.Equal(t, "services", feedPub.events[0].Table)
	assert.Equal(t, feed.EventInsert, feedPub.events[0].Type)
}

func TestListingService_Publish_AnonymousRejected(t *testing.T) {
	repo := new(mockListingRepo)
	users := new(mockUserRepo)
	svc := newListingService(repo, users, nil)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(anonUser(userID), nil)

	_, err := svc.Publish(ctx, userID, PublishInput{Kind: models.ListingKindDemand, Title: "找人搬家"})

	assert.ErrorIs(t, err, apperror.ErrEmailRequired)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_Publish_EmptyTitle(t *testing.T) {
	users := new(mockUserRepo)
	svc := newListingService(new(mockListingRepo), users, nil)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)

	_, err := svc.Publish(ctx, userID, PublishInput{Kind: models.ListingKindService, Title: "   "})

	assert.Error(t, err)
}

func TestListingService_Publish_NonNumericAmount(t *testing.T) {
	users := new(mockUserRepo)
	svc := newListingService(new(mockListingRepo), users, nil)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)

	_, err := svc.Publish(ctx, userID, PublishInput{
		Kind:      models.ListingKindService,
		Title:     "修水管",
		AmountRaw: "面议",
	})

	assert.Error(t, err)
}

func TestListingService_Publish_EmptyAmountMeansNull(t *testing.T) {
	repo := new(mockListingRepo)
	users := new(mockUserRepo)
	svc := newListingService(repo, users, nil)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)

	result, err := svc.Publish(ctx, userID, PublishInput{
		Kind:  models.ListingKindDemand,
		Title: "找人遛狗",
	})

	assert.NoError(t, err)
	assert.Nil(t, result.Listing.Amount)
	assert.Equal(t, models.CategoryOther, result.Listing.Category)
}

func TestListingService_Publish_ContactWriteFailureKeepsListing(t *testing.T) {
	repo := new(mockListingRepo)
	users := new(mockUserRepo)
	svc := newListingService(repo, users, nil)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)
	repo.On("UpsertContact", ctx, mock.Anything).Return(errors.New("db down"))

	result, err := svc.Publish(ctx, userID, PublishInput{
		Kind:    models.ListingKindService,
		Title:   "修水管",
		Contact: "13800000000",
	})

	assert.NoError(t, err)
	assert.False(t, result.ContactSaved)
	assert.NotEqual(t, uuid.Nil, result.Listing.ID)
}

func TestListingService_List_PassesFilter(t *testing.T) {
	repo := new(mockListingRepo)
	svc := newListingService(repo, new(mockUserRepo), nil)
	ctx := context.Background()

	repo.On("List", ctx, repository.ListFilter{
		Kind:     models.ListingKindService,
		Status:   models.ListingStatusActive,
		Query:    "水管",
		Category: "维修",
	}).Return([]models.Listing{{ID: uuid.New()}}, nil)

	listings, err := svc.List(ctx, models.ListingKindService, "  水管  ", "维修")

	assert.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestListingService_List_UnknownKind(t *testing.T) {
	svc := newListingService(new(mockListingRepo), new(mockUserRepo), nil)

	_, err := svc.List(context.Background(), "jobs", "", "")
	assert.Error(t, err)
}

func TestListingService_Contact_RequiresEmail(t *testing.T) {
	users := new(mockUserRepo)
	svc := newListingService(new(mockListingRepo), users, nil)
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(anonUser(userID), nil)

	_, err := svc.Contact(ctx, userID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrEmailRequired)
}

func TestListingService_Contact_NotProvided(t *testing.T) {
	repo := new(mockListingRepo)
	users := new(mockUserRepo)
	svc := newListingService(repo, users, nil)
	ctx := context.Background()

	userID := uuid.New()
	listingID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)
	repo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID}, nil)
	repo.On("GetContact", ctx, listingID).Return(nil, nil)

	result, err := svc.Contact(ctx, userID, listingID)

	assert.NoError(t, err)
	assert.False(t, result.Provided)
	assert.Empty(t, result.Contact)
}

func TestListingService_Contact_Provided(t *testing.T) {
	repo := new(mockListingRepo)
	users := new(mockUserRepo)
	svc := newListingService(repo, users, nil)
	ctx := context.Background()

	userID := uuid.New()
	listingID := uuid.New()
	users.On("GetByID", ctx, userID).Return(emailUser(userID), nil)
	repo.On("GetByID", ctx, listingID).Return(&models.Listing{ID: listingID}, nil)
	repo.On("GetContact", ctx, listingID).Return(&models.ListingContact{
		ListingID: listingID,
		Contact:   "wx: abc",
	}, nil)

	result, err := svc.Contact(ctx, userID, listingID)

	assert.NoError(t, err)
	assert.True(t, result.Provided)
	assert.Equal(t, "wx: abc", result.Contact)
}

func TestListingService_Delete_NotOwner(t *testing.T) {
	repo := new(mockListingRepo)
	svc := newListingService(repo, new(mockUserRepo), nil)
	ctx := context.Background()

	listingID := uuid.New()
	repo.On("GetByID", ctx, listingID).Return(&models.Listing{
		ID:      listingID,
		OwnerID: uuid.New(),
	}, nil)

	err := svc.Delete(ctx, uuid.New(), listingID)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService_My_FiltersByStatus(t *testing.T) {
	repo := new(mockListingRepo)
	svc := newListingService(repo, new(mockUserRepo), nil)
	ctx := context.Background()

	userID := uuid.New()
	repo.On("ListByOwner", ctx, models.ListingKindService, userID, models.ListingStatusCompleted, 0).
		Return([]models.Listing{{ID: uuid.New(), Status: models.ListingStatusCompleted}}, nil)

	items, err := svc.My(ctx, userID, models.ListingKindService, models.ListingStatusCompleted)

	assert.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListingService_My_EmptyStatusReturnsAll(t *testing.T) {
	repo := new(mockListingRepo)
	svc := newListingService(repo, new(mockUserRepo), nil)
	ctx := context.Background()

	userID := uuid.New()
	// Пустой статус уходит в репозиторий как есть: там он означает
	// выборку и активных, и завершённых объявлений.
	repo.On("ListByOwner", ctx, models.ListingKindDemand, userID, "", 0).
		Return([]models.Listing{
			{ID: uuid.New(), Status: models.ListingStatusActive},
			{ID: uuid.New(), Status: models.ListingStatusCompleted},
		}, nil)

	items, err := svc.My(ctx, userID, models.ListingKindDemand, "")

	assert.NoError(t, err)
	assert.Len(t, items, 2)
	repo.AssertExpectations(t)
}

func TestListingService_My_UnknownStatus(t *testing.T) {
	repo := new(mockListingRepo)
	svc := newListingService(repo, new(mockUserRepo), nil)

	_, err := svc.My(context.Background(), uuid.New(), models.ListingKindService, "archived")

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListingService_Complete(t *testing.T) {
	repo := new(mockListingRepo)
	feedPub := &recordingFeed{}
	svc := newListingService(repo, new(mockUserRepo), feedPub)
	ctx := context.Background()

	userID := uuid.New()
	listingID := uuid.New()
	repo.On("GetByID", ctx, listingID).Return(&models.Listing{
		ID:      listingID,
		Kind:    models.ListingKindDemand,
		OwnerID: userID,
		Status:  models.ListingStatusActive,
	}, nil)
	repo.On("UpdateStatus", ctx, listingID, userID, models.ListingStatusCompleted).Return(nil)

	listing, err := svc.Complete(ctx, userID, listingID)

	assert.NoError(t, err)
	assert.Equal(t, models.ListingStatusCompleted, listing.Status)
	assert.Len(t, feedPub.events, 1)
	assert.Equal(t, "demands", feedPub.events[0].Table)
}
