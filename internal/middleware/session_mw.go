package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/IshaNayal/swasth-saathi/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	AuthAccountKey = "authAccount"
	AuthRoleKey    = "authRole"
)

// SessionVerifier validates a bearer token.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*utils.SessionClaims, error)
}

// SessionAuthMiddleware rejects requests without a valid session token and
// exposes the caller's account id and role to later handlers.
func SessionAuthMiddleware(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in again"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in again"})
			return
		}

		claims, err := verifier.VerifySession(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in again"})
			return
		}

		c.Set(AuthAccountKey, claims.AccountID)
		c.Set(AuthRoleKey, claims.Role)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.AccountID, claims.Role))

		c.Next()
	}
}

// AccountID returns the authenticated account id set by SessionAuthMiddleware.
func AccountID(c *gin.Context) (string, bool) {
	v, ok := c.Get(AuthAccountKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
