// Package httpapi groups the HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services,
// return JSON. Authorization decisions live in guard + policy, not
// here; handlers may assume the route policy already ran.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"canteen-platform/internal/catalog"
	"canteen-platform/internal/history"
	"canteen-platform/internal/identity"
	"canteen-platform/internal/issuer"
	"canteen-platform/internal/token"
	"canteen-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Issuer  *issuer.Issuer
	Catalog *catalog.Service
	History history.Store
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": "Authentication required",
	})
}

/* ===================== AUTH ===================== */

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a signed token. Every credential
// failure maps to the same 401; only throttling is distinguishable.
func (h Handlers) Login(c *gin.Context) {
	if h.Issuer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	tok, err := h.Issuer.Issue(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, issuer.ErrThrottled):
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
		case errors.Is(err, issuer.ErrBadCredential):
			abortUnauthorized(c)
		default:
			logger.FromGin(c).Error("login failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// Refresh re-issues the bearer token presented on this request.
func (h Handlers) Refresh(c *gin.Context) {
	h.doRefresh(c, h.Issuer.Refresh)
}

// RefreshAdmin is the admin-scoped refresh path: a non-admin token is
// a 403, any invalid token a 401.
func (h Handlers) RefreshAdmin(c *gin.Context) {
	h.doRefresh(c, h.Issuer.RefreshAdmin)
}

func (h Handlers) doRefresh(c *gin.Context, fn func(context.Context, string) (string, error)) {
	if h.Issuer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
		abortUnauthorized(c)
		return
	}

	fresh, err := fn(c.Request.Context(), strings.TrimPrefix(raw, "Bearer "))
	if err != nil {
		switch {
		case errors.Is(err, issuer.ErrInsufficientPrivilege):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Insufficient role",
			})
		case errors.Is(err, token.ErrExpired),
			errors.Is(err, token.ErrSignatureMismatch),
			errors.Is(err, token.ErrMalformed),
			errors.Is(err, token.ErrMissingClaim),
			errors.Is(err, token.ErrInvalidClaim):
			logger.FromGin(c).Info("refresh rejected", "reason", token.Kind(err))
			abortUnauthorized(c)
		default:
			logger.FromGin(c).Error("refresh failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": fresh})
}

// Me echoes the principal established for this request.
func (h Handlers) Me(c *gin.Context) {
	p, ok := identity.FromContext(c.Request.Context())
	if !ok {
		abortUnauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  p.UserID,
		"username": p.Username,
		"role":     string(p.Role),
	})
}

/* ===================== CATALOG ===================== */

func (h Handlers) ListCafeterias(c *gin.Context) {
	if h.Catalog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "catalog not configured"})
		return
	}
	cs, err := h.Catalog.ListCafeterias(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("list cafeterias failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cafeterias": cs})
}

func (h Handlers) ListStalls(c *gin.Context) {
	if h.Catalog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "catalog not configured"})
		return
	}
	id, err := strconv.ParseInt(c.Param("cafeteria_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid cafeteria id"})
		return
	}
	stalls, err := h.Catalog.ListStalls(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("list stalls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stalls": stalls})
}

type createCafeteriaRequest struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	OpenHours string `json:"open_hours"`
}

// CreateCafeteria is admin-only via route policy.
func (h Handlers) CreateCafeteria(c *gin.Context) {
	if h.Catalog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "catalog not configured"})
		return
	}
	var req createCafeteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id, err := h.Catalog.CreateCafeteria(c.Request.Context(), catalog.Cafeteria{
		Name:      req.Name,
		Location:  req.Location,
		OpenHours: req.OpenHours,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("create cafeteria failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

/* ===================== SEARCH HISTORY ===================== */

type recordSearchRequest struct {
	Term string `json:"term"`
}

func (h Handlers) RecordSearch(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	uid, err := identity.CurrentUserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c)
		return
	}
	var req recordSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.History.Record(c.Request.Context(), uid, req.Term); err != nil {
		if errors.Is(err, history.ErrInvalidTerm) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "term is required"})
			return
		}
		logger.FromGin(c).Error("record search failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "record failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) RecentSearches(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	uid, err := identity.CurrentUserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c)
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	terms, err := h.History.Recent(c.Request.Context(), uid, limit)
	if err != nil {
		logger.FromGin(c).Error("recent searches failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if terms == nil {
		terms = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"searches": terms})
}

func (h Handlers) ClearSearches(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	uid, err := identity.CurrentUserID(c.Request.Context())
	if err != nil {
		abortUnauthorized(c)
		return
	}
	if err := h.History.Clear(c.Request.Context(), uid); err != nil {
		logger.FromGin(c).Error("clear searches failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
