package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canteen-platform/internal/catalog"
	"canteen-platform/internal/guard"
	"canteen-platform/internal/history"
	"canteen-platform/internal/identity"
	"canteen-platform/internal/issuer"
	"canteen-platform/internal/policy"
	"canteen-platform/internal/token"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// newTestApp wires guard + policy + handlers the way the service
// binaries do, backed by in-memory stores.
func newTestApp(t *testing.T) (*gin.Engine, *token.Codec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := token.NewCodec("test-secret", "canteen")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	hashOf := func(pw string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		return string(h)
	}
	store := issuer.NewMemoryStore(
		issuer.Account{ID: 42, Username: "alice", PasswordHash: hashOf("password"), Role: identity.RoleUser},
		issuer.Account{ID: 999, Username: "admin", PasswordHash: hashOf("adminpw"), Role: identity.RoleAdmin},
	)
	iss, err := issuer.NewIssuer(codec, store, time.Hour, slog.Default())
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	h := Handlers{
		Issuer:  iss,
		Catalog: catalog.NewService(catalog.NewMemoryRepo()),
		History: history.NewMemoryStore(),
	}

	public := policy.PublicPaths{"/healthz", "/v1/auth/login", "GET /v1/cafeterias"}
	tbl, err := policy.NewTable([]policy.Rule{
		{Pattern: "/healthz", Require: policy.RequirePublic},
		{Pattern: "/v1/auth/login", Require: policy.RequirePublic},
		{Pattern: "/v1/cafeterias", Method: "GET", Require: policy.RequirePublic},
		{Pattern: "/v1/cafeterias/*", Method: "GET", Require: policy.RequirePublic},
		{Pattern: "/v1/cafeterias", Method: "POST", Require: policy.RequireAdmin},
		{Pattern: "/v1/auth/refresh/admin", Require: policy.RequireAdmin},
	})
	if err != nil {
		t.Fatalf("table: %v", err)
	}

	r := gin.New()
	g := guard.NewGuard(codec, public, "", slog.Default())
	r.Use(g.Middleware(), policy.Middleware(tbl))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)
	r.POST("/v1/auth/refresh/admin", h.RefreshAdmin)
	r.GET("/v1/me", h.Me)
	r.GET("/v1/cafeterias", h.ListCafeterias)
	r.GET("/v1/cafeterias/:cafeteria_id/stalls", h.ListStalls)
	r.POST("/v1/cafeterias", h.CreateCafeteria)
	r.POST("/v1/history/searches", h.RecordSearch)
	r.GET("/v1/history/searches", h.RecentSearches)
	r.DELETE("/v1/history/searches", h.ClearSearches)
	return r, codec
}

func call(r *gin.Engine, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func login(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w, body := call(r, http.MethodPost, "/v1/auth/login", "", gin.H{"username": username, "password": password})
	if w.Code != 200 {
		t.Fatalf("login %s: expected 200, got %d (%s)", username, w.Code, w.Body.String())
	}
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatalf("login %s: no token in response", username)
	}
	return tok
}

func TestHealthz_PublicThroughFullChain(t *testing.T) {
	r, _ := newTestApp(t)

	// No credentials at all: the guard passes the request through
	// anonymous and the policy table must still let it reach the
	// handler, not 401 it via the authenticated default.
	w, body := call(r, http.MethodGet, "/healthz", "", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestLogin_IssuesDecodableToken(t *testing.T) {
	r, codec := newTestApp(t)

	tok := login(t, r, "alice", "password")
	p, err := codec.Decode(tok, time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UserID != 42 || p.Username != "alice" || p.Role != identity.RoleUser {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestLogin_BadCredentialIsUniform401(t *testing.T) {
	r, _ := newTestApp(t)

	for _, creds := range []gin.H{
		{"username": "alice", "password": "wrong"},
		{"username": "ghost", "password": "whatever"},
	} {
		w, body := call(r, http.MethodPost, "/v1/auth/login", "", creds)
		if w.Code != 401 {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if body["error"] != "Unauthorized" || body["message"] != "Authentication required" {
			t.Fatalf("unexpected body: %v", body)
		}
	}
}

func TestLogin_MissingFieldsIs400(t *testing.T) {
	r, _ := newTestApp(t)
	w, _ := call(r, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "alice"})
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMe_ReflectsBearerPrincipal(t *testing.T) {
	r, _ := newTestApp(t)
	tok := login(t, r, "admin", "adminpw")

	w, body := call(r, http.MethodGet, "/v1/me", tok, nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["username"] != "admin" || body["role"] != "ADMIN" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMe_AnonymousIs401(t *testing.T) {
	r, _ := newTestApp(t)
	w, _ := call(r, http.MethodGet, "/v1/me", "", nil)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	r, codec := newTestApp(t)
	tok := login(t, r, "alice", "password")

	w, body := call(r, http.MethodPost, "/v1/auth/refresh", tok, nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	fresh, _ := body["token"].(string)
	p, err := codec.Decode(fresh, time.Now())
	if err != nil {
		t.Fatalf("decode refreshed: %v", err)
	}
	if p.UserID != 42 || p.Role != identity.RoleUser {
		t.Fatalf("refresh changed claims: %+v", p)
	}
}

func TestRefresh_GarbageTokenIs401(t *testing.T) {
	r, _ := newTestApp(t)
	// The guard leaves the request anonymous and the default policy
	// rejects it before the handler ever runs.
	w, _ := call(r, http.MethodPost, "/v1/auth/refresh", "garbage", nil)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRefreshAdmin_UserTokenIs403(t *testing.T) {
	r, _ := newTestApp(t)
	userTok := login(t, r, "alice", "password")

	w, _ := call(r, http.MethodPost, "/v1/auth/refresh/admin", userTok, nil)
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	adminTok := login(t, r, "admin", "adminpw")
	w, body := call(r, http.MethodPost, "/v1/auth/refresh/admin", adminTok, nil)
	if w.Code != 200 || body["token"] == "" {
		t.Fatalf("expected admin refresh to succeed, got %d", w.Code)
	}
}

func TestCatalog_PublicReadAdminWrite(t *testing.T) {
	r, _ := newTestApp(t)

	// Anonymous read of the listing is public.
	if w, _ := call(r, http.MethodGet, "/v1/cafeterias", "", nil); w.Code != 200 {
		t.Fatalf("anonymous list: expected 200, got %d", w.Code)
	}

	// Anonymous create: 401.
	if w, _ := call(r, http.MethodPost, "/v1/cafeterias", "", gin.H{"name": "x", "location": "y"}); w.Code != 401 {
		t.Fatalf("anonymous create: expected 401, got %d", w.Code)
	}

	// USER create: 403.
	userTok := login(t, r, "alice", "password")
	if w, _ := call(r, http.MethodPost, "/v1/cafeterias", userTok, gin.H{"name": "x", "location": "y"}); w.Code != 403 {
		t.Fatalf("user create: expected 403, got %d", w.Code)
	}

	// ADMIN create: 201, then visible in the public listing.
	adminTok := login(t, r, "admin", "adminpw")
	w, body := call(r, http.MethodPost, "/v1/cafeterias", adminTok, gin.H{"name": "Main Hall", "location": "north"})
	if w.Code != 201 {
		t.Fatalf("admin create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	if body["id"] == nil {
		t.Fatalf("expected created id")
	}

	w, body = call(r, http.MethodGet, "/v1/cafeterias", "", nil)
	if w.Code != 200 {
		t.Fatalf("list after create: %d", w.Code)
	}
	items, _ := body["cafeterias"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 cafeteria, got %v", body)
	}
}

func TestHistory_ScopedToPrincipal(t *testing.T) {
	r, _ := newTestApp(t)
	aliceTok := login(t, r, "alice", "password")
	adminTok := login(t, r, "admin", "adminpw")

	if w, _ := call(r, http.MethodPost, "/v1/history/searches", aliceTok, gin.H{"term": "noodles"}); w.Code != 204 {
		t.Fatalf("record: expected 204, got %d", w.Code)
	}
	if w, _ := call(r, http.MethodPost, "/v1/history/searches", aliceTok, gin.H{"term": "sushi"}); w.Code != 204 {
		t.Fatalf("record: expected 204, got %d", w.Code)
	}

	w, body := call(r, http.MethodGet, "/v1/history/searches", aliceTok, nil)
	if w.Code != 200 {
		t.Fatalf("recent: expected 200, got %d", w.Code)
	}
	terms, _ := body["searches"].([]any)
	if len(terms) != 2 || terms[0] != "sushi" {
		t.Fatalf("unexpected history: %v", body)
	}

	// A different principal sees an empty history.
	w, body = call(r, http.MethodGet, "/v1/history/searches", adminTok, nil)
	if w.Code != 200 {
		t.Fatalf("recent other: expected 200, got %d", w.Code)
	}
	if terms, _ := body["searches"].([]any); len(terms) != 0 {
		t.Fatalf("expected empty history for other user, got %v", terms)
	}

	// Anonymous history access is rejected by the default policy.
	if w, _ := call(r, http.MethodGet, "/v1/history/searches", "", nil); w.Code != 401 {
		t.Fatalf("anonymous recent: expected 401, got %d", w.Code)
	}

	if w, _ := call(r, http.MethodDelete, "/v1/history/searches", aliceTok, nil); w.Code != 204 {
		t.Fatalf("clear: expected 204, got %d", w.Code)
	}
	w, body = call(r, http.MethodGet, "/v1/history/searches", aliceTok, nil)
	if terms, _ := body["searches"].([]any); len(terms) != 0 {
		t.Fatalf("expected cleared history, got %v", terms)
	}
}

func TestRecentSearches_BadLimitIs400(t *testing.T) {
	r, _ := newTestApp(t)
	tok := login(t, r, "alice", "password")
	if w, _ := call(r, http.MethodGet, "/v1/history/searches?limit=abc", tok, nil); w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecordSearch_BlankTermIs400(t *testing.T) {
	r, _ := newTestApp(t)
	tok := login(t, r, "alice", "password")
	if w, _ := call(r, http.MethodPost, "/v1/history/searches", tok, gin.H{"term": "  "}); w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
