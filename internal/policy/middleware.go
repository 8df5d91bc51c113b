package policy

import (
	"net/http"

	"canteen-platform/internal/identity"

	"github.com/gin-gonic/gin"
)

// Middleware enforces the route policy table. It must run after the
// request guard so that any establishable principal is already in the
// request context.
//
// Check ordering is fixed: a missing or expired credential produces 401
// even on admin-only routes; 403 is reserved for a valid principal with
// the wrong role.
func Middleware(t *Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := t.Match(c.Request.Method, c.Request.URL.Path)
		if req == RequirePublic {
			c.Next()
			return
		}

		p, ok := identity.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Authentication required",
			})
			return
		}

		if req == RequireAdmin && !p.Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Insufficient role",
			})
			return
		}
		c.Next()
	}
}
