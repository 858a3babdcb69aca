package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnTokenRoundTrip(t *testing.T) {
	tokens := NewTurnTokens([]byte("turn-secret"), 10*time.Minute)

	token, expires, err := tokens.Issue("u1", "bar-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expires, 2*time.Second)

	userID, venueID, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "bar-1", venueID)
}

func TestTurnTokenUnique(t *testing.T) {
	tokens := NewTurnTokens([]byte("turn-secret"), time.Minute)
	a, _, err := tokens.Issue("u1", "bar-1")
	require.NoError(t, err)
	b, _, err := tokens.Issue("u1", "bar-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTurnTokenRejected(t *testing.T) {
	tokens := NewTurnTokens([]byte("turn-secret"), time.Minute)
	token, _, err := tokens.Issue("u1", "bar-1")
	require.NoError(t, err)

	other := NewTurnTokens([]byte("another-secret"), time.Minute)
	_, _, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidTurnToken, "foreign signature")

	later := NewTurnTokens([]byte("turn-secret"), time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = later.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidTurnToken, "expired")

	_, _, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidTurnToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TurnClaims{
		VenueID:          "bar-1",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte("turn-secret"))
	require.NoError(t, err)
	_, _, err = tokens.Parse(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidTurnToken, "expiry required")
}

func TestAccessToken(t *testing.T) {
	secret := []byte("access-secret")
	token, err := IssueAccessToken(secret, AccessClaims{UserID: "u1", Role: "employee", VenueID: "bar-1"}, time.Hour)
	require.NoError(t, err)

	claims, err := parseAccessToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "employee", claims.Role)
	assert.Equal(t, "bar-1", claims.VenueID)

	_, err = parseAccessToken([]byte("wrong"), token)
	assert.Error(t, err)

	expired, err := IssueAccessToken(secret, AccessClaims{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = parseAccessToken(secret, expired)
	assert.Error(t, err)

	anonymous, err := IssueAccessToken(secret, AccessClaims{}, time.Hour)
	require.NoError(t, err)
	_, err = parseAccessToken(secret, anonymous)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = parseAccessToken(secret, none)
	assert.Error(t, err, "alg none")
}
