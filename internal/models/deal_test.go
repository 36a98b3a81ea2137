package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDealStatusFor(t *testing.T) {
	assert.Equal(t, DealStatusConfirming, DealStatusFor(false, false))
	assert.Equal(t, DealStatusConfirming, DealStatusFor(true, false))
	assert.Equal(t, DealStatusConfirming, DealStatusFor(false, true))
	assert.Equal(t, DealStatusDone, DealStatusFor(true, true))
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 1, ClampRating(0))
	assert.Equal(t, 1, ClampRating(-10))
	assert.Equal(t, 1, ClampRating(1))
	assert.Equal(t, 3, ClampRating(3))
	assert.Equal(t, 5, ClampRating(5))
	assert.Equal(t, 5, ClampRating(6))
	assert.Equal(t, 5, ClampRating(100))
}

func TestConversation_Counterpart(t *testing.T) {
	c := &Conversation{}
	c.OwnerID = mustUUID("11111111-1111-1111-1111-111111111111")
	c.OtherID = mustUUID("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, c.OtherID, c.Counterpart(c.OwnerID))
	assert.Equal(t, c.OwnerID, c.Counterpart(c.OtherID))
	assert.True(t, c.IsParticipant(c.OwnerID))
	assert.True(t, c.IsParticipant(c.OtherID))
	assert.False(t, c.IsParticipant(mustUUID("33333333-3333-3333-3333-333333333333")))
}
