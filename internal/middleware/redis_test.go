package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1 << 10,
	}
}

func TestResponseCache_HitAfterMiss(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(cacheCfg(), rdb, zap.NewNop())
	calls := 0

	e := echo.New()
	e.GET("/api/posts", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"n": 1})
	}, rc.Middleware())

	get := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	first := get("")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get("")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	get("Bearer x")
	assert.Equal(t, 2, calls, "authorized requests bypass the cache")

	rc.Invalidate(context.Background())
	assert.Equal(t, "MISS", get("").Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrorsAndOversizeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheCfg()
	cfg.MaxBodyBytes = 8
	rc := NewResponseCache(cfg, rdb, zap.NewNop())

	e := echo.New()
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, "0123456789abcdef") }, rc.Middleware())
	e.GET("/missing", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) }, rc.Middleware())

	for _, path := range []string{"/big", "/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Empty(t, mr.Keys())
}

func TestResponseCache_NilIsPassThrough(t *testing.T) {
	var rc *ResponseCache
	rc.Invalidate(context.Background())

	disabled := NewResponseCache(config.CacheConfig{}, nil, nil)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, disabled.Middleware())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, zap.NewNop()))

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, post().Code)
	rec := post()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	blocked := post()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucket_RedisDownLetsRequestsThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, nil))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
