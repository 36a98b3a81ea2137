package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xqiuyi/hall-backend/internal/feed"
	"github.com/xqiuyi/hall-backend/internal/models"
	"github.com/xqiuyi/hall-backend/internal/pkg/apperror"
	"github.com/xqiuyi/hall-backend/internal/repository"
)

type dealFixture struct {
	deals    *mockDealRepo
	convs    *mockConversationRepo
	listings *mockListingRepo
	feed     *recordingFeed
	svc      *DealService
}

func newDealFixture() *dealFixture {
	deals := new(mockDealRepo)
	convs := new(mockConversationRepo)
	listings := new(mockListingRepo)
	feedPub := &recordingFeed{}
	listingSvc := NewListingService(listings, new(mockUserRepo), NewContactCache(nil), nil, feedPub)
	return &dealFixture{
		deals:    deals,
		convs:    convs,
		listings: listings,
		feed:     feedPub,
		svc:      NewDealService(deals, convs, listingSvc, feedPub),
	}
}

func TestDealService_Get_NoDealYet(t *testing.T) {
	f := newDealFixture()
	ctx := context.Background()

	userID := uuid.New()
	convID := uuid.New()
	f.convs.On("GetByID", ctx, convID).Return(&models.Conversation{
		ID: convID, OwnerID: userID, OtherID: uuid.New(),
	}, nil)
	f.deals.On("GetByConversation", ctx, convID).Return(nil, nil)

	deal, err := f.svc.Get(ctx, userID, convID)

	assert.NoError(t, err)
	assert.Nil(t, deal)
}

func TestDealService_Get_NotParticipant(t *testing.T) {
	f := newDealFixture()
	ctx := context.Background()

	convID := uuid.New()
	f.convs.On("GetByID", ctx, convID).Return(&models.Conversation{
		ID: convID, OwnerID: uuid.New(), OtherID: uuid.New(),
	}, nil)

	_, err := f.svc.Get(ctx, uuid.New(), convID)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDealService_Confirm_FirstSideCreatesDeal(t *testing.T) {
	f := newDealFixture()
	ctx := context.Background()

	userID := uuid.New()
	convID := uuid.New()
	conv := &models.Conversation{ID: convID, OwnerID: userID, OtherID: uuid.New(), PostID: uuid.New()}

	f.convs.On("GetByID", ctx, convID).Return(conv, nil)
	f.deals.On("GetByConversation", ctx, convID).Return(nil, nil)
	f.deals.On("Create", ctx, mock.AnythingOfType("*models.Deal")).Return(nil)
	f.deals.On("SetConfirmed", ctx, mock.Anything, true).Return(&models.Deal{
		ID:             uuid.New(),
		ConversationID: convID,
		Status:         models.DealStatusConfirming,
		OwnerConfirmed: true,
	}, nil)

	deal, err := f.svc.Confirm(ctx, userID, convID)

	assert.NoError(t, err)
	assert.Equal(t, models.DealStatusConfirming, deal.Status)
	assert.True(t, deal.OwnerConfirmed)
	assert.False(t, deal.OtherConfirmed)
	f.deals.AssertNotCalled(t, "MarkDone", mock.Anything, mock.Anything)

	assert.Len(t, f.feed.events, 1)
	assert.Equal(t, "deals", f.feed.events[0].Table)
	assert.Equal(t, feed.EventUpdate, f.feed.events[0].Type)
}

func TestDealService_Confirm_SecondSideCompletesDealAndListing(t *testing.T) {
	f := newDealFixture()
	ctx := context.Background()

	ownerID := uuid.New()
	otherID := uuid.New()
	convID := uuid.New()
	listingID := uuid.New()
	conv := &models.Conversation{ID: convID, OwnerID: ownerID, OtherID: otherID, PostID: listingID, PostType: models.ListingKindService}

	dealID := uuid.New()
	now := time.Now()

	f.convs.On("GetByID", ctx, convID).Return(conv, nil)
	f.deals.On("GetByConversation", ctx, convID).Return(&models.Deal{
		ID:             dealID,
		ConversationID: convID,
		Status:         models.DealStatusConfirming,
		OwnerConfirmed: true,
	}, nil)
	f.deals.On("SetConfirmed", ctx, dealID, false).Return(&models.Deal{
		ID:             dealID,
		ConversationID: convID,
		Status:         models.DealStatusConfirming,
		OwnerConfirmed: true,
		OtherConfirmed: true,
		UpdatedAt:      &now,
	}, nil)
	f.deals.On("MarkDone", ctx, dealID).Return(&models.Deal{
		ID:             dealID,
		ConversationID: convID,
		Status:         models.DealStatusDone,
		OwnerConfirmed: true,
		OtherConfirmed: true,
		UpdatedAt:      &now,
	}, nil)
	f.listings.On("GetByID", ctx, listingID).Return(&models.Listing{
		ID:      listingID,
		Kind:    models.ListingKindService,
		OwnerID: otherID,
		Status:  models.ListingStatusActive,
	}, nil)
	f.listings.On("UpdateStatus", ctx, listingID, uuid.Nil, models.ListingStatusCompleted).Return(nil)

	deal, err := f.svc.Confirm(ctx, otherID, convID)

	assert.NoError(t, err)
	assert.Equal(t, models.DealStatusDone, deal.Status)
	f.listings.AssertExpectations(t)

	// Закрытие объявления и обновление сделки попадают в ленту.
	tables := []string{}
	for _, ev := range f.feed.events {
		tables = append(tables, ev.Table)
	}
	assert.Contains(t, tables, "deals")
	assert.Contains(t, tables, "services")
}

func TestDealService_Confirm_Idempotent(t *testing.T) {
	f := newDealFixture()
	ctx := context.Background()

	userID := uuid.New()
	convID := uuid.New()
	conv := &models.Conversation{ID: convID, OwnerID: userID, OtherID: uuid.New()}

	done := &models.Deal{
		ID:             uuid.New(),
		ConversationID: convID,
		Status:         models.DealStatusDone,
		OwnerConfirmed: true,
		OtherConfirmed: true,
	}

	f.convs.On("GetByID", ctx, convID).Return(conv, nil)
	f.deals.On("GetByConversation", ctx, convID).Return(done, nil)

	deal, err := f.svc.Confirm(ctx, userID, convID)

	assert.NoError(t, err)
	assert.Equal(t, models.DealStatusDone, deal.Status)
	f.deals.AssertNotCalled(t, "SetConfirmed", mock.Anything, mock.Anything, mock.Anything)
}

func TestDealService_Confirm_RaceOnCreateRereads(t *testing.T) {
	f := newDealFixture()
	ctx := context.Background()

	userID := uuid.New()
	convID := uuid.New()
	conv := &models.Conversation{ID: convID, OwnerID: uuid.New(), OtherID: userID}

	existing := &models.Deal{
		ID:             uuid.New(),
		ConversationID: convID,
		Status:         models.DealStatusConfirming,
		OwnerConfirmed: true,
	}

	f.convs.On("GetByID", ctx, convID).Return(conv, nil)
	// Первое чтение пустое, вставка падает на уникальности, перечитываем.
	f.deals.On("GetByConversation", ctx, convID).Return(nil, nil).Once()
	f.deals.On("Create", ctx, mock.Anything).Return(&pq.Error{Code: "23505"})
	f.deals.On("GetByConversation", ctx, convID).Return(existing, nil).Once()
	f.deals.On("SetConfirmed", ctx, existing.ID, false).Return(&models.Deal{
		ID:             existing.ID,
		ConversationID: convID,
		Status:         models.DealStatusConfirming,
		OwnerConfirmed: true,
		OtherConfirmed: true,
	}, nil)
	f.deals.On("MarkDone", ctx, existing.ID).Return(&models.Deal{
		ID:             existing.ID,
		ConversationID: convID,
		Status:         models.DealStatusDone,
		OwnerConfirmed: true,
		OtherConfirmed: true,
	}, nil)
	f.listings.On("GetByID", ctx, conv.PostID).Return(nil, repository.ErrListingNotFound)

	deal, err := f.svc.Confirm(ctx, userID, convID)

	assert.NoError(t, err)
	assert.Equal(t, models.DealStatusDone, deal.Status)
}
