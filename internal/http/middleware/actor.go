// Request actor resolution.
//
// The service sits behind a gateway that authenticates callers and forwards
// identity as headers. This middleware lifts those headers into the Gin
// context so handlers and downstream middleware share one view of who is
// calling. It performs no authentication itself.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-grocery-backend/internal/domain"
)

// Identity headers forwarded by the gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Gin context keys set by Actor.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUserRole = "userRole"
)

// Actor resolves the acting user from the identity headers. An unknown or
// absent role defaults to CUSTOMER; missing user IDs are left empty and
// rejected later by RequireUser where identity is mandatory.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyUserID, c.GetHeader(HeaderUserID))

		role := domain.Role(c.GetHeader(HeaderUserRole))
		if !role.Valid() {
			role = domain.RoleCustomer
		}
		c.Set(ctxKeyUserRole, role)

		c.Next()
	}
}

// UserID returns the acting user's ID, or "" when the request carried none.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// UserRole returns the acting user's role as resolved by Actor.
func UserRole(c *gin.Context) domain.Role {
	if v, ok := c.Get(ctxKeyUserRole); ok {
		if r, ok := v.(domain.Role); ok {
			return r
		}
	}
	return domain.RoleCustomer
}

// RequireUser rejects requests that carry no user identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortEnvelope(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user identity required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests whose resolved role is not in the allow list.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		have := UserRole(c)
		for _, r := range roles {
			if have == r {
				c.Next()
				return
			}
		}
		abortEnvelope(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
	}
}

// abortEnvelope writes the standard error envelope and stops the chain.
// Duplicated from the handlers package on purpose: middleware must not
// import handlers (handlers already depends on this package).
func abortEnvelope(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": msg},
	})
}
