package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the payload of an access token. Role, VenueID and Name are only trusted by
// ClaimsResolver; DirectoryResolver reads them from the users table instead.
type AccessClaims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role,omitempty"`
	VenueID string `json:"venue_id,omitempty"`
	Name    string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs claims with HS256 and the given lifetime.
func IssueAccessToken(secret []byte, claims AccessClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseAccessToken(secret []byte, tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("token carries no user")
	}
	return claims, nil
}

// ErrInvalidTurnToken covers malformed, expired and foreign turn tokens alike.
var ErrInvalidTurnToken = errors.New("invalid turn token")

// TurnClaims binds a waiting member to a venue. The member id is the subject.
type TurnClaims struct {
	VenueID string `json:"venue_id"`
	jwt.RegisteredClaims
}

// TurnTokens issues and checks the short-lived tokens shown as a QR code on the waiting screen.
type TurnTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTurnTokens(secret []byte, ttl time.Duration) *TurnTokens {
	return &TurnTokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for userID at venueID and its expiry.
func (t *TurnTokens) Issue(userID, venueID string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := TurnClaims{
		VenueID: venueID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign turn token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a turn token and returns the member and venue it was issued for.
func (t *TurnTokens) Parse(tokenString string) (userID, venueID string, err error) {
	claims := &TurnClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" || claims.VenueID == "" {
		return "", "", ErrInvalidTurnToken
	}
	return claims.Subject, claims.VenueID, nil
}
