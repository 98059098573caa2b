package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/resource-mgmt/console/internal/auth"
	"github.com/resource-mgmt/console/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = auth.ContextUserID
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = auth.ContextUserRole
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = auth.ContextUserEmail
)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWT returns a middleware that validates JWT and sets user claims in context.
// revoked may be nil to skip the logout check.
func JWT(jwtService *auth.JWTService, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if revoked != nil {
			gone, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				response.ServiceUnavailable(c, "session store unavailable")
				c.Abort()
				return
			}
			if gone {
				response.Unauthorized(c, "token revoked")
				c.Abort()
				return
			}
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(auth.ContextTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(auth.ContextTokenExpiry, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}
