package guard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canteen-platform/internal/identity"
	"canteen-platform/internal/policy"
	"canteen-platform/internal/token"

	"github.com/gin-gonic/gin"
)

type whoami struct {
	Anonymous bool   `json:"anonymous"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

var testNow = time.Unix(1700000000, 0).UTC()

func newTestGuard(t *testing.T, edgeSecret string) (*Guard, *token.Codec) {
	t.Helper()
	codec, err := token.NewCodec("test-secret", "canteen")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	g := NewGuard(codec, policy.PublicPaths{"/healthz"}, edgeSecret, slog.Default())
	g.clock = func() time.Time { return testNow }
	return g, codec
}

func guardRouter(g *Guard) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(g.Middleware())
	echo := func(c *gin.Context) {
		p, ok := identity.FromContext(c.Request.Context())
		if !ok {
			c.JSON(200, whoami{Anonymous: true})
			return
		}
		c.JSON(200, whoami{UserID: p.UserID, Username: p.Username, Role: string(p.Role)})
	}
	r.GET("/healthz", echo)
	r.GET("/v1/me", echo)
	return r
}

func request(r *gin.Engine, headers map[string]string) whoami {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	var out whoami
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestGuard_PublicPathSkipsIdentity(t *testing.T) {
	g, _ := newTestGuard(t, "")
	r := guardRouter(g)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(identity.HeaderUserID, "5")
	req.Header.Set(identity.HeaderUsername, "alice")
	r.ServeHTTP(w, req)

	var out whoami
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if !out.Anonymous {
		t.Fatalf("public path should not establish a principal")
	}
}

func TestGuard_TrustsHeaders(t *testing.T) {
	g, _ := newTestGuard(t, "")
	r := guardRouter(g)

	out := request(r, map[string]string{
		identity.HeaderUserID:   "42",
		identity.HeaderUsername: "alice",
		identity.HeaderUserRole: "ROLE_ADMIN",
	})
	if out.Anonymous || out.UserID != 42 || out.Username != "alice" || out.Role != "ADMIN" {
		t.Fatalf("unexpected principal: %+v", out)
	}
}

func TestGuard_BlankRoleHeaderDefaultsToUser(t *testing.T) {
	g, _ := newTestGuard(t, "")
	r := guardRouter(g)

	out := request(r, map[string]string{
		identity.HeaderUserID:   "7",
		identity.HeaderUsername: "bob",
	})
	if out.Role != "USER" {
		t.Fatalf("expected USER default, got %q", out.Role)
	}
}

func TestGuard_HeadersWinOverBearer(t *testing.T) {
	g, codec := newTestGuard(t, "")
	r := guardRouter(g)

	tok, err := codec.Encode("tokenuser", 1000, identity.RoleAdmin, time.Hour, testNow)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := request(r, map[string]string{
		identity.HeaderUserID:   "1",
		identity.HeaderUsername: "headeruser",
		"Authorization":         "Bearer " + tok,
	})
	if out.Username != "headeruser" || out.UserID != 1 {
		t.Fatalf("expected header identity to win, got %+v", out)
	}
}

func TestGuard_BearerFallback(t *testing.T) {
	g, codec := newTestGuard(t, "")
	r := guardRouter(g)

	tok, err := codec.Encode("alice", 42, identity.RoleUser, time.Hour, testNow)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := request(r, map[string]string{"Authorization": "Bearer " + tok})
	if out.Anonymous || out.UserID != 42 || out.Username != "alice" || out.Role != "USER" {
		t.Fatalf("unexpected principal: %+v", out)
	}
}

func TestGuard_InvalidBearerContinuesAnonymously(t *testing.T) {
	g, codec := newTestGuard(t, "")
	r := guardRouter(g)

	expired, err := codec.Encode("alice", 42, identity.RoleUser, time.Minute, testNow.Add(-time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for _, auth := range []string{"Bearer garbage", "Bearer " + expired, "Basic abc"} {
		out := request(r, map[string]string{"Authorization": auth})
		if !out.Anonymous {
			t.Fatalf("auth %q: expected anonymous pass-through, got %+v", auth, out)
		}
	}
}

func TestGuard_NoCredentialsContinuesAnonymously(t *testing.T) {
	g, _ := newTestGuard(t, "")
	out := request(guardRouter(g), nil)
	if !out.Anonymous {
		t.Fatalf("expected anonymous pass-through")
	}
}

func TestGuard_PartialHeadersIgnored(t *testing.T) {
	g, _ := newTestGuard(t, "")
	r := guardRouter(g)

	// Only one of the two required headers: not a trusted set.
	out := request(r, map[string]string{identity.HeaderUserID: "42"})
	if !out.Anonymous {
		t.Fatalf("user id alone must not establish a principal")
	}
	out = request(r, map[string]string{identity.HeaderUsername: "alice"})
	if !out.Anonymous {
		t.Fatalf("username alone must not establish a principal")
	}
}

func TestGuard_RejectsBadHeaderValues(t *testing.T) {
	g, _ := newTestGuard(t, "")
	r := guardRouter(g)

	out := request(r, map[string]string{
		identity.HeaderUserID:   "not-a-number",
		identity.HeaderUsername: "alice",
	})
	if !out.Anonymous {
		t.Fatalf("non-numeric id header must not establish a principal")
	}

	out = request(r, map[string]string{
		identity.HeaderUserID:   "42",
		identity.HeaderUsername: "alice",
		identity.HeaderUserRole: "SUPERUSER",
	})
	if !out.Anonymous {
		t.Fatalf("unknown role header must not establish a principal")
	}
}

func TestGuard_EdgeSecretGatesHeaderTrust(t *testing.T) {
	g, codec := newTestGuard(t, "edge-secret")
	r := guardRouter(g)

	base := map[string]string{
		identity.HeaderUserID:   "42",
		identity.HeaderUsername: "alice",
	}

	if out := request(r, base); !out.Anonymous {
		t.Fatalf("headers without gateway token must not be trusted")
	}

	withWrong := map[string]string{
		identity.HeaderUserID:       "42",
		identity.HeaderUsername:     "alice",
		identity.HeaderGatewayToken: "wrong",
	}
	if out := request(r, withWrong); !out.Anonymous {
		t.Fatalf("headers with wrong gateway token must not be trusted")
	}

	withRight := map[string]string{
		identity.HeaderUserID:       "42",
		identity.HeaderUsername:     "alice",
		identity.HeaderGatewayToken: "edge-secret",
	}
	if out := request(r, withRight); out.Anonymous || out.UserID != 42 {
		t.Fatalf("headers with gateway token should be trusted, got %+v", out)
	}

	// Untrusted headers still fall back to a raw bearer token.
	tok, err := codec.Encode("bob", 7, identity.RoleUser, time.Hour, testNow)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	mixed := map[string]string{
		identity.HeaderUserID:   "42",
		identity.HeaderUsername: "alice",
		"Authorization":         "Bearer " + tok,
	}
	if out := request(r, mixed); out.Anonymous || out.Username != "bob" {
		t.Fatalf("expected bearer fallback for untrusted headers, got %+v", out)
	}
}
