package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/z26b/storefront/internal/backend"

	"github.com/gin-gonic/gin"
)

func TestKeyBySession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"
	if key := KeyBySession(c); key != "ip:1.2.3.4" {
		t.Fatalf("anonymous key want ip:1.2.3.4 got %s", key)
	}

	c.Request = c.Request.WithContext(backend.WithIdentity(c.Request.Context(), backend.Identity{OpenID: "oid-9"}))
	if key := KeyBySession(c); key != "oid:oid-9" {
		t.Fatalf("session key want oid:oid-9 got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("expected handler response body, got %s", w.Body.String())
		}
	}
}

func TestWaitSeconds(t *testing.T) {
	if got := waitSeconds(12, 60); got != 12 {
		t.Fatalf("ttl should win, got %d", got)
	}
	if got := waitSeconds(-1, 60); got != 60 {
		t.Fatalf("missing ttl should fall back to window, got %d", got)
	}
	if got := waitSeconds(0, 0); got != 1 {
		t.Fatalf("wait should be at least 1, got %d", got)
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(10), want: 10, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}
