// Package edge implements the mesh entry point: a single filter that
// authenticates inbound traffic once, stamps the verified identity onto
// the request as headers, and forwards it to the owning service.
package edge

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"canteen-platform/internal/audit"
	"canteen-platform/internal/identity"
	"canteen-platform/internal/policy"
	"canteen-platform/internal/token"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Guard verifies inbound bearer tokens before any routing happens.
// Every failure subtype collapses to the same 401 response; the
// subtype goes to the logs and the audit trail only.
type Guard struct {
	codec      *token.Codec
	public     policy.PublicPaths
	edgeSecret string

	// Audit is optional; rejected tokens are recorded when set.
	Audit *audit.Service

	clock func() time.Time
	log   *slog.Logger
}

func NewGuard(codec *token.Codec, public policy.PublicPaths, edgeSecret string, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		codec:      codec,
		public:     public,
		edgeSecret: edgeSecret,
		clock:      time.Now,
		log:        log,
	}
}

// Middleware must be registered before all other routing logic so that
// nothing downstream sees an unauthenticated non-public request.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.public.Match(c.Request.Method, c.Request.URL.Path) {
			// Public requests are forwarded as-is, minus the gateway
			// capability header: that one only ever originates here.
			c.Request.Header.Del(identity.HeaderGatewayToken)
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			g.reject(c, "missing_credential")
			return
		}

		p, err := g.codec.Decode(strings.TrimPrefix(raw, bearerPrefix), g.clock())
		if err != nil {
			g.reject(c, token.Kind(err))
			return
		}

		g.stamp(c.Request, p)
		c.Next()
	}
}

// stamp rewrites the outbound request with the trusted header set,
// overwriting any caller-supplied values of the same names.
func (g *Guard) stamp(r *http.Request, p identity.Principal) {
	r.Header.Set(identity.HeaderUserID, strconv.FormatInt(p.UserID, 10))
	r.Header.Set(identity.HeaderUsername, p.Username)
	r.Header.Set(identity.HeaderUserRole, string(p.Role))
	if g.edgeSecret != "" {
		r.Header.Set(identity.HeaderGatewayToken, g.edgeSecret)
	}
}

func (g *Guard) reject(c *gin.Context, reason string) {
	g.log.Info("request rejected at edge",
		"reason", reason,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
	)
	if g.Audit != nil {
		_ = g.Audit.LogTokenRejected(c.Request.Context(), c.ClientIP(), reason)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": "Authentication required",
	})
}
