package edge

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canteen-platform/internal/guard"
	"canteen-platform/internal/identity"
	"canteen-platform/internal/policy"
	"canteen-platform/internal/token"

	"github.com/gin-gonic/gin"
)

func TestNewProxy_ValidatesInputs(t *testing.T) {
	if _, err := NewProxy(nil); err == nil {
		t.Fatalf("expected error for empty table")
	}
	if _, err := NewProxy(map[string]string{"v1": "http://x"}); err == nil {
		t.Fatalf("expected error for prefix without slash")
	}
	if _, err := NewProxy(map[string]string{"/v1": "not-a-url"}); err == nil {
		t.Fatalf("expected error for relative upstream URL")
	}
}

func TestProxy_RoutesByLongestPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)

	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("catalog"))
	}))
	defer catalog.Close()
	reviews := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("reviews"))
	}))
	defer reviews.Close()

	p, err := NewProxy(map[string]string{
		"/v1/cafeterias":         catalog.URL,
		"/v1/cafeterias/reviews": reviews.URL,
	})
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}

	r := gin.New()
	r.NoRoute(p.Handler())

	cases := map[string]string{
		"/v1/cafeterias":           "catalog",
		"/v1/cafeterias/12":        "catalog",
		"/v1/cafeterias/reviews/3": "reviews",
		"/v1/cafeteriasandmore":    "",
		"/v2/unknown":              "",
	}
	for path, want := range cases {
		w := httptest.NewRecorder()
		// ReverseProxy consults http.CloseNotifier when the request
		// context has no Done channel; ResponseRecorder does not
		// implement it, so give the request a cancellable context.
		ctx, cancel := context.WithCancel(context.Background())
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx))
		cancel()
		if want == "" {
			if w.Code != 404 {
				t.Fatalf("%s: expected 404, got %d", path, w.Code)
			}
			continue
		}
		if w.Code != 200 || w.Body.String() != want {
			t.Fatalf("%s: got %d %q, want %q", path, w.Code, w.Body.String(), want)
		}
	}
}

// TestGatewayToService_EndToEnd exercises the full chain: client →
// edge guard → reverse proxy → service guard → route policy → handler.
func TestGatewayToService_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// Both guards run on the real clock here, so tokens are minted
	// relative to it.
	now := time.Now()
	const edgeSecret = "edge-secret"

	codec, err := token.NewCodec("shared-secret", "canteen")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	// Downstream service: guard then policy then handlers.
	svcPublic := policy.PublicPaths{"/healthz", "GET /v1/cafeterias"}
	svcGuard := guard.NewGuard(codec, svcPublic, edgeSecret, slog.Default())
	tbl, err := policy.NewTable([]policy.Rule{
		{Pattern: "/v1/cafeterias", Method: "GET", Require: policy.RequirePublic},
		{Pattern: "/v1/admin/*", Require: policy.RequireAdmin},
	})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	svc := gin.New()
	svc.Use(svcGuard.Middleware(), policy.Middleware(tbl))
	svc.GET("/v1/cafeterias", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	svc.GET("/v1/admin/accounts", func(c *gin.Context) {
		p, _ := identity.FromContext(c.Request.Context())
		c.JSON(200, gin.H{"user_id": p.UserID})
	})
	backend := httptest.NewServer(svc)
	defer backend.Close()

	// Gateway: edge guard in front of the proxy.
	edgePublic := policy.PublicPaths{"/healthz", "GET /v1/cafeterias"}
	eg := NewGuard(codec, edgePublic, edgeSecret, slog.Default())
	proxy, err := NewProxy(map[string]string{"/v1": backend.URL})
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	gw := gin.New()
	gw.Use(eg.Middleware())
	gw.NoRoute(proxy.Handler())
	gateway := httptest.NewServer(gw)
	defer gateway.Close()

	adminTok, err := codec.Encode("admin", 999, identity.RoleAdmin, time.Hour, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	userTok, err := codec.Encode("alice", 42, identity.RoleUser, time.Hour, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	expiredTok, err := codec.Encode("admin", 999, identity.RoleAdmin, time.Minute, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	get := func(base, path, bearer string) int {
		req, _ := http.NewRequest(http.MethodGet, base+path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	// Admin reaches an admin route through the gateway.
	if code := get(gateway.URL, "/v1/admin/accounts", adminTok); code != 200 {
		t.Fatalf("admin via gateway: expected 200, got %d", code)
	}
	// A user on the same route is forbidden, not unauthorized.
	if code := get(gateway.URL, "/v1/admin/accounts", userTok); code != 403 {
		t.Fatalf("user via gateway: expected 403, got %d", code)
	}
	// An expired token never reaches the service.
	if code := get(gateway.URL, "/v1/admin/accounts", expiredTok); code != 401 {
		t.Fatalf("expired via gateway: expected 401, got %d", code)
	}
	// Public read-only listing needs no credentials at all.
	if code := get(gateway.URL, "/v1/cafeterias", ""); code != 200 {
		t.Fatalf("public via gateway: expected 200, got %d", code)
	}

	// Direct service call with a raw admin token and no trusted
	// headers: the guard's fallback path re-verifies the token.
	if code := get(backend.URL, "/v1/admin/accounts", adminTok); code != 200 {
		t.Fatalf("admin direct: expected 200, got %d", code)
	}
	// Direct call with no credentials: the policy layer, not the
	// guard, produces the 401.
	if code := get(backend.URL, "/v1/admin/accounts", ""); code != 401 {
		t.Fatalf("anonymous direct: expected 401, got %d", code)
	}

	// Forged identity headers on a direct call are worthless without
	// the gateway capability header.
	req, _ := http.NewRequest(http.MethodGet, backend.URL+"/v1/admin/accounts", nil)
	req.Header.Set(identity.HeaderUserID, "999")
	req.Header.Set(identity.HeaderUsername, "admin")
	req.Header.Set(identity.HeaderUserRole, "ADMIN")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Fatalf("forged headers direct: expected 401, got %d", resp.StatusCode)
	}
}
