package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := CheckPassword(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "hunter23")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "hunter22")
	assert.Error(t, err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	manager := NewTokenManager("secret", 0)
	userID := uuid.New()

	raw, err := manager.Issue(userID)
	require.NoError(t, err)

	claims, err := manager.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID())
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, DefaultTokenTTL.Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
}

func TestTokenManager_Rejects(t *testing.T) {
	manager := NewTokenManager("secret", time.Hour)
	raw, err := manager.Issue(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err = expired.Issue(uuid.New())
	require.NoError(t, err)
	_, err = manager.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: uuid.NewString()})
	raw, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = manager.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err = hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = manager.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type memoryStore struct {
	keys map[string]time.Duration
	err  error
}

func (m *memoryStore) Set(_ context.Context, key string, _ any, expiration time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.keys[key] = expiration
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.keys[key]
	return ok, m.err
}

func TestDenylist(t *testing.T) {
	store := &memoryStore{keys: map[string]time.Duration{}}
	denylist := NewDenylist(store)
	ctx := context.Background()

	require.NoError(t, denylist.Revoke(ctx, "jti-1", time.Minute))
	require.NoError(t, denylist.Revoke(ctx, "jti-2", -time.Second))

	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Minute, store.keys[denylistPrefix+"jti-1"])

	revoked, err = denylist.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	store.err = errors.New("redis down")
	_, err = denylist.IsRevoked(ctx, "jti-1")
	assert.Error(t, err)
}
