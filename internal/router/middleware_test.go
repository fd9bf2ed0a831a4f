package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/constants"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func newIdentityRouter(devMode bool, now func() time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdentityMiddleware(now))
	r.Use(RequireIdentity(devMode))
	r.GET("/me", func(c *gin.Context) {
		id, _ := backend.IdentityFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"key":     id.Key(),
			"openid":  id.OpenID,
			"token":   id.Token,
			"context": c.GetString(constants.ContextKeyIdentity),
		})
	})
	return r
}

type envelope struct {
	StatusCode int                    `json:"status_code"`
	Msg        string                 `json:"msg"`
	Data       map[string]interface{} `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestIdentityMiddlewareReadsHeaders(t *testing.T) {
	r := newIdentityRouter(false, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(openIDHeader, " oid-1 ")
	req.Header.Set("Authorization", "Bearer opaque-token")
	r.ServeHTTP(w, req)

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["openid"] != "oid-1" || resp["token"] != "opaque-token" {
		t.Fatalf("identity not forwarded: %+v", resp)
	}
	if resp["key"] != "oid:oid-1" || resp["context"] != "oid:oid-1" {
		t.Fatalf("session key want oid:oid-1 got %+v", resp)
	}
}

func TestRequireIdentityRejectsAnonymous(t *testing.T) {
	r := newIdentityRouter(false, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestRequireIdentityDevModeAllowsAnonymous(t *testing.T) {
	r := newIdentityRouter(true, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["key"] != "anonymous" {
		t.Fatalf("dev mode should pass anonymous through, got %+v", resp)
	}
}

func signToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("unused-by-middleware"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return signed
}

func TestIdentityMiddlewareExpiredJWT(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := newIdentityRouter(false, func() time.Time { return now })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, now.Add(-time.Minute)))
	r.ServeHTTP(w, req)
	resp := decodeEnvelope(t, w)
	if resp.StatusCode != 401 {
		t.Fatalf("expired token status_code want 401 got %d", resp.StatusCode)
	}
	if resp.Msg != "登录已过期，请重新登录" {
		t.Fatalf("unexpected msg: %s", resp.Msg)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/me", nil)
	req2.Header.Set("Authorization", "Bearer "+signToken(t, now.Add(time.Hour)))
	r.ServeHTTP(w2, req2)
	var ok map[string]string
	if err := json.Unmarshal(w2.Body.Bytes(), &ok); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if ok["key"] == "" || ok["key"][:3] != "tk:" {
		t.Fatalf("valid token should produce token session key, got %+v", ok)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) want %q got %q", header, want, got)
		}
	}
}
