package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/crew-booking/internal/config"
	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, p *model.Person) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, p, 15)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		require.True(t, ok)
		ut, ok := UserType(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{
			"id":            id,
			"user_type":     ut,
			"role_category": c.Get(CtxRoleCategory),
			"name":          c.Get(CtxName),
		})
	}, JWTAuth(secret))

	rec := serve(e, http.MethodGet, "/me", bearer(t, &model.Person{
		ID: 7, Name: "Sam", UserType: model.UserTypeMusician, RoleCategory: model.RoleBass,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"user_type":"musician","role_category":"Bass","name":"Sam"}`, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, JWTAuth(secret))

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No authentication token"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/me", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}

func TestRequireUserType(t *testing.T) {
	e := echo.New()
	e.POST("/events", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		JWTAuth(secret), RequireUserType(model.UserTypeManager))

	rec := serve(e, http.MethodPost, "/events", bearer(t, &model.Person{ID: 1, UserType: model.UserTypeManager}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(e, http.MethodPost, "/events", bearer(t, &model.Person{ID: 2, UserType: model.UserTypeMusician, RoleCategory: model.RoleKeys}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
}

func TestLocalTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil, zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/ping", "")
		require.Equal(t, http.StatusNoContent, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 3000)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/events")
	c.Set(CtxUserID, uint64(9))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:GET /v1/events", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:9", buildRateKey(cfg, c))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError) })

	rec := serve(e, http.MethodGet, "/ok", "")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, http.MethodGet, "/fail", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "abc", entries[1].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.EqualValues(t, 500, entries[2].ContextMap()["status"])
}

func TestTimeoutSetsDeadline(t *testing.T) {
	e := echo.New()
	e.Use(Timeout(time.Second))
	e.GET("/", func(c echo.Context) error {
		dl, ok := c.Request().Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), dl, 100*time.Millisecond)
		return c.NoContent(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", "").Code)
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil, zap.NewNop()))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "x") })
	rec := serve(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKeyIncludesCallerAndGeneration(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache"}
	mk := func(uid uint64) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events?status=unfilled", nil), httptest.NewRecorder())
		c.Set(CtxUserID, uid)
		return c
	}
	a := cacheKeyFrom(cfg, mk(1), 0)
	assert.Equal(t, a, cacheKeyFrom(cfg, mk(1), 0))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, mk(2), 0))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, mk(1), 1))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRestoreHeadersKeepsPerRequestValues(t *testing.T) {
	cached := http.Header{
		"Content-Type":          {"application/json"},
		"Content-Length":        {"7"},
		"X-Request-Id":          {"old-id"},
		"X-Ratelimit-Limit":     {"60"},
		"X-Ratelimit-Remaining": {"59"},
		"Retry-After":           {"3"},
		"X-Cache":               {"MISS"},
	}
	dst := http.Header{}
	dst.Set(echo.HeaderXRequestID, "new-id")
	dst.Set("X-RateLimit-Limit", "60")
	dst.Set("X-RateLimit-Remaining", "42")

	restoreHeaders(dst, cached)

	assert.Equal(t, []string{"application/json"}, dst.Values("Content-Type"))
	assert.Equal(t, []string{"new-id"}, dst.Values(echo.HeaderXRequestID))
	assert.Equal(t, []string{"60"}, dst.Values("X-RateLimit-Limit"))
	assert.Equal(t, []string{"42"}, dst.Values("X-RateLimit-Remaining"))
	assert.Empty(t, dst.Values("Retry-After"))
	assert.Empty(t, dst.Values("Content-Length"))
	assert.Empty(t, dst.Values("X-Cache"))
}
