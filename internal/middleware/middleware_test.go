package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JoseLuizMendes/barber-pro/internal/config"
	"github.com/JoseLuizMendes/barber-pro/internal/utils"
)

func ok(c echo.Context) error { return c.String(http.StatusOK, UserID(c)) }

func serve(e *echo.Echo, method, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRoles(t *testing.T) {
	e := echo.New()
	e.GET("/shops/:shop", ok, JWTAuth("k"), RequireRole(utils.RoleStaff, utils.RoleAdmin), RequireTenant("shop"))

	staff, err := utils.NewAccessToken("k", "staff-1", utils.RoleStaff, "shop-1", time.Hour)
	require.NoError(t, err)
	admin, err := utils.NewAccessToken("k", "root", utils.RoleAdmin, "", time.Hour)
	require.NoError(t, err)
	cust, err := utils.NewAccessToken("k", "cust-1", utils.RoleCustomer, "", time.Hour)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "staff-1", utils.RoleStaff, "shop-1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		tok  string
		code int
	}{
		{"no token", "/shops/shop-1", "", http.StatusUnauthorized},
		{"forged token", "/shops/shop-1", forged.Token, http.StatusUnauthorized},
		{"customer", "/shops/shop-1", cust.Token, http.StatusForbidden},
		{"staff own shop", "/shops/shop-1", staff.Token, http.StatusOK},
		{"staff other shop", "/shops/shop-2", staff.Token, http.StatusForbidden},
		{"admin any shop", "/shops/shop-2", admin.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.path, tt.tok)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := serve(e, http.MethodGet, "/shops/shop-1", staff.Token)
	assert.Equal(t, "staff-1", rec.Body.String())
}

func TestTokenBucketPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil)
	e.POST("/x", ok, mw)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(CtxUserID, "cust-1")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	for strategy, want := range map[string]string{
		"ip":         "rl:ip:10.0.0.7",
		"user":       "rl:user:cust-1",
		"user_route": "rl:user:cust-1:route:POST /v1/bookings",
		"":           "rl:ip:10.0.0.7:user:cust-1:route:POST /v1/bookings",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}
}

// Needs a disposable Redis: REDIS_TEST_ADDR=localhost:6379.
func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Minute,
		KeyStrategy: "route", Prefix: "rl-test-" + time.Now().Format("150405.000000"),
	}
	e := echo.New()
	e.POST("/x", ok, NewTokenBucket(cfg, rdb, nil))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
	rec := serve(e, http.MethodPost, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", ok)
	e.GET("/boom", func(echo.Context) error { return echo.NewHTTPError(http.StatusServiceUnavailable, "down") })

	serve(e, http.MethodGet, "/ok", "")
	rec := serve(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}
