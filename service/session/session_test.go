package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Secret: "secret", Issuer: "ledger", Capacity: 16})
	require.NoError(t, err)

	token, err := s.Issue(ctx, "alice", time.Hour)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		user, err := s.Login(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Account)
		assert.True(t, user.ExpiresAt.After(time.Now()))
	}

	_, err = s.Login(ctx, token+"x")
	assert.Error(t, err)

	_, err = New(Config{})
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestLoginRejects(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	s := &session{secret: []byte("secret"), issuer: "ledger", now: func() time.Time { return now }}

	expired, err := s.Issue(ctx, "alice", time.Minute)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = s.Login(ctx, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := &session{secret: []byte("secret"), issuer: "elsewhere", now: s.now}
	foreign, err := other.Issue(ctx, "alice", time.Hour)
	require.NoError(t, err)

	_, err = s.Login(ctx, foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "ledger",
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.Login(ctx, unsigned)
	assert.Error(t, err)

	_, err = s.Issue(ctx, "", time.Hour)
	assert.Error(t, err)
}
