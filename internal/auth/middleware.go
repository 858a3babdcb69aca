package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"

	"leap/internal/queue"
	"leap/internal/response"
)

const callerKey = "caller"

// IdentityResolver turns verified token claims into a queue caller.
type IdentityResolver interface {
	Resolve(ctx context.Context, claims *AccessClaims) (queue.Caller, error)
}

// UserLookup is the part of the user directory the role gate needs.
type UserLookup interface {
	LookupUser(ctx context.Context, userID string) (queue.Caller, bool, error)
}

// ErrUnknownUser is returned for tokens whose user no longer exists or carries an unknown role.
var ErrUnknownUser = errors.New("unknown user")

// DirectoryResolver looks the token's user up on every request, so role and venue changes apply
// without reissuing tokens.
type DirectoryResolver struct {
	Users UserLookup
}

func (r DirectoryResolver) Resolve(ctx context.Context, claims *AccessClaims) (queue.Caller, error) {
	caller, found, err := r.Users.LookupUser(ctx, claims.UserID)
	if err != nil {
		return queue.Caller{}, err
	}
	if !found {
		return queue.Caller{}, ErrUnknownUser
	}
	return caller, nil
}

// ClaimsResolver trusts the role and venue carried in the token itself.
type ClaimsResolver struct{}

func (ClaimsResolver) Resolve(_ context.Context, claims *AccessClaims) (queue.Caller, error) {
	role := queue.RoleUser
	if claims.Role != "" {
		role = queue.Role(claims.Role)
	}
	if !role.Valid() {
		return queue.Caller{}, fmt.Errorf("%w: role %q", ErrUnknownUser, claims.Role)
	}
	caller := queue.Caller{
		UserID:      claims.UserID,
		DisplayName: claims.Name,
		Role:        role,
	}
	if role == queue.RoleEmployee {
		caller.VenueID = claims.VenueID
	}
	if caller.DisplayName == "" {
		caller.DisplayName = claims.UserID
	}
	return caller, nil
}

// AuthMiddleware verifies the access token and stores the resolved caller in the context.
// Browsers cannot set headers on websocket upgrades, so the token may also come as ?access_token=.
func AuthMiddleware(secret []byte, resolver IdentityResolver, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "NO_AUTH_HEADER",
				Message: "authorization required",
			})
			return
		}

		claims, err := parseAccessToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN",
				Message: "invalid or expired token",
			})
			return
		}

		caller, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", claims.UserID).Msg("failed to resolve caller")
			status, code := http.StatusUnauthorized, "INVALID_USER"
			if !errors.Is(err, ErrUnknownUser) {
				status, code = http.StatusServiceUnavailable, "IDENTITY_UNAVAILABLE"
			}
			c.AbortWithStatusJSON(status, response.ErrorResponse{
				Code:      code,
				Message:   "could not resolve caller",
				Retryable: status == http.StatusServiceUnavailable,
			})
			return
		}

		SetCaller(c, caller)
		c.Next()
	}
}

// SetCaller stores caller for downstream handlers.
func SetCaller(c *gin.Context, caller queue.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller stored by AuthMiddleware.
func CallerFrom(c *gin.Context) (queue.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return queue.Caller{}, false
	}
	caller, ok := v.(queue.Caller)
	return caller, ok
}
