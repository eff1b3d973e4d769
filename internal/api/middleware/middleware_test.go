package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club-bookings/backend/config"
	"club-bookings/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── Mock ──

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	count int64
	err   error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, _ string, limit int, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.count++
	return f.count <= int64(limit), f.count, nil
}

func newJWTManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:              "middleware-test-secret-0123",
		AccessTokenTTL:         time.Minute,
		RefreshTokenTTLDefault: time.Hour,
	})
}

func run(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newJWTManager()
	access, _ := mgr.GenerateAccessToken("user-1", "parent")
	refresh, _ := mgr.GenerateRefreshToken("user-1", "parent", false)

	claims, err := mgr.ParseToken(access)
	if err != nil {
		t.Fatalf("解析 token 失败: %v", err)
	}
	revokedAccess, _ := mgr.GenerateAccessToken("user-1", "parent")
	revokedClaims, _ := mgr.ParseToken(revokedAccess)
	blacklist := &fakeBlacklist{revoked: map[string]bool{revokedClaims.ID: true}}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, blacklist, zap.NewNop()), func(c *gin.Context) {
		got, _ := c.Get("claims")
		if c.GetString("user_id") != "user-1" || got.(*jwt.Claims).ID != claims.ID {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"正常", "Bearer " + access, http.StatusOK},
		{"缺少认证头", "", http.StatusUnauthorized},
		{"格式错误", "Token " + access, http.StatusUnauthorized},
		{"伪造", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"refresh token 不能访问接口", "Bearer " + refresh, http.StatusUnauthorized},
		{"已注销", "Bearer " + revokedAccess, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if w := run(r, req); w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestJWTAuth_BlacklistUnavailable(t *testing.T) {
	mgr := newJWTManager()
	access, _ := mgr.GenerateAccessToken("user-1", "teacher")

	for name, bl := range map[string]TokenBlacklist{
		"nil":      nil,
		"redis 出错": &fakeBlacklist{err: errors.New("connection refused")},
	} {
		r := gin.New()
		r.GET("/me", JWTAuth(mgr, bl, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		if w := run(r, req); w.Code != http.StatusOK {
			t.Errorf("%s: 黑名单不可用时应放行，实际 %d", name, w.Code)
		}
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{"teacher", http.StatusOK},
		{"parent", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/clubs", func(c *gin.Context) {
			if tc.role != "" {
				c.Set("role", tc.role)
			}
		}, RoleAuth("teacher"), func(c *gin.Context) { c.Status(http.StatusOK) })

		if w := run(r, httptest.NewRequest("GET", "/clubs", nil)); w.Code != tc.want {
			t.Errorf("role=%q: expected %d, got %d", tc.role, tc.want, w.Code)
		}
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 2, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := run(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求应放行，实际 %d", i+1, w.Code)
		}
	}
	w := run(r, httptest.NewRequest("POST", "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("超限应返回 429，实际 %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("限流响应头不符: %v", w.Header())
	}
}

func TestRateLimit_FailOpen(t *testing.T) {
	for name, limiter := range map[string]RateLimiter{
		"nil":      nil,
		"redis 出错": &fakeLimiter{err: errors.New("timeout")},
	} {
		r := gin.New()
		r.POST("/login", RateLimit(limiter, 1, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })
		for i := 0; i < 3; i++ {
			if w := run(r, httptest.NewRequest("POST", "/login", nil)); w.Code != http.StatusOK {
				t.Errorf("%s: 限流不可用时应放行，实际 %d", name, w.Code)
			}
		}
	}
}

// ── RequestID / BodyLimit / CORS ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	if w := run(r, req); w.Body.String() != "abc-123" || w.Header().Get(requestIDHeader) != "abc-123" {
		t.Errorf("应沿用请求头中的 ID，实际 %q", w.Body.String())
	}

	for _, bad := range []string{strings.Repeat("x", requestIDMaxLen+1), "bad id\r\nX-Injected: 1"} {
		req = httptest.NewRequest("GET", "/", nil)
		req.Header[requestIDHeader] = []string{bad}
		if w := run(r, req); w.Body.String() == bad || len(w.Body.String()) != 36 {
			t.Errorf("非法 ID 应被替换为 UUID，实际 %q", w.Body.String())
		}
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := run(r, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("a", 17))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
	w = run(r, httptest.NewRequest("POST", "/", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := run(r, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("白名单预检应通过，实际 %d %v", w.Code, w.Header())
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	if w := run(r, req); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("非白名单 Origin 不应回显")
	}
}
