package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("access", "refresh", 15*time.Minute, time.Hour)
	user := emailUser(uuid.New())

	pair, accessExp, refreshExp, err := tm.GeneratePair(user)
	require.NoError(t, err)
	assert.True(t, refreshExp.After(accessExp))

	userID, anon, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.False(t, anon)

	claims, err := tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestTokenManager_AnonymousClaim(t *testing.T) {
	tm := NewTokenManager("access", "refresh", 15*time.Minute, time.Hour)

	pair, _, _, err := tm.GeneratePair(anonUser(uuid.New()))
	require.NoError(t, err)

	_, anon, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, anon)
}

func TestTokenManager_WrongSecretRejected(t *testing.T) {
	tm := NewTokenManager("access", "refresh", 15*time.Minute, time.Hour)
	other := NewTokenManager("another", "secret", 15*time.Minute, time.Hour)

	pair, _, _, err := tm.GeneratePair(emailUser(uuid.New()))
	require.NoError(t, err)

	_, _, err = other.ParseAccess(pair.AccessToken)
	assert.Error(t, err)

	_, err = other.ParseRefresh(pair.RefreshToken)
	assert.Error(t, err)
}

func TestTokenManager_ExpiredAccessRejected(t *testing.T) {
	tm := NewTokenManager("access", "refresh", -time.Minute, time.Hour)

	pair, _, _, err := tm.GeneratePair(emailUser(uuid.New()))
	require.NoError(t, err)

	_, _, err = tm.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}
