package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	identityKey = "identity"
)

// TokenAuthenticator runs the credential pipeline for a bearer token.
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (auth.Identity, error)
}

// AuthMiddleware creates a middleware that authenticates the request with the
// same verifier, resolver and gate as the socket handshake.
func AuthMiddleware(authn TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(auth.Handshake{
			Headers: lowerHeaders(c.Request.Header),
			Query:   c.Request.URL.Query(),
		})
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
				Error: "missing authorization header",
				Type:  string(auth.FailureNoToken),
			})
			return
		}

		id, err := authn.AuthenticateToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			resp := types.ErrorResponse{Error: "invalid token"}

			var f *auth.Failure
			if errors.As(err, &f) {
				resp = types.ErrorResponse{Error: f.Message, Type: string(f.Type)}
				if f.Type == auth.FailureServerConfig || f.Type == auth.FailureSystemError {
					status = http.StatusInternalServerError
				}
			}
			c.AbortWithStatusJSON(status, resp)
			return
		}

		// Store identity in context
		c.Set(userIDKey, id.User.ID)
		c.Set(identityKey, id)

		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetIdentity extracts the authenticated identity from the Gin context.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func lowerHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = v
	}
	return out
}
