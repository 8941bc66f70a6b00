package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{}

func (failingProvider) CurrentUser(context.Context) (*Identity, error) {
	return nil, errors.New("session store unavailable")
}

func TestVerifier_IssueAndParse(t *testing.T) {
	v := NewVerifier("test-secret")
	userID := uuid.NewString()

	token, err := v.Issue(userID, time.Hour)
	require.NoError(t, err)

	id, err := v.ParseHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("test-secret")
	userID := uuid.NewString()

	expired, err := v.Issue(userID, -time.Minute)
	require.NoError(t, err)
	_, err = v.Parse(expired)
	assert.Error(t, err)

	other, err := NewVerifier("other-secret").Issue(userID, time.Hour)
	require.NoError(t, err)
	_, err = v.Parse(other)
	assert.Error(t, err)

	badSub, err := v.Issue("42", time.Hour)
	require.NoError(t, err)
	_, err = v.Parse(badSub)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: userID}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Parse(none)
	assert.Error(t, err)

	for _, header := range []string{"", "Bearer", "Token abc", "Bearer "} {
		_, err = v.ParseHeader(header)
		assert.Error(t, err, header)
	}
}

func TestProviders(t *testing.T) {
	ctx := context.Background()

	id, err := Require(ctx, StaticProvider{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)

	_, err = Require(ctx, StaticProvider{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = Require(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = Require(ctx, failingProvider{})
	assert.Error(t, err)

	assert.Nil(t, Optional(ctx, StaticProvider{}))
	assert.Nil(t, Optional(ctx, failingProvider{}))

	assert.Nil(t, Optional(ctx, ContextProvider{}))
	withUser := WithUser(ctx, &Identity{UserID: "u2"})
	got := Optional(withUser, ContextProvider{})
	require.NotNil(t, got)
	assert.Equal(t, "u2", got.UserID)
}
