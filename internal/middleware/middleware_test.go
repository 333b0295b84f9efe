package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gigwallet/config"
	"gigwallet/internal/auth"
	"gigwallet/internal/cache"
	"gigwallet/internal/domain"
	"gigwallet/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var jwtCfg = &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Minute, Issuer: "gigwallet"}

func bearer(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(jwtCfg, userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/x", AuthRequired(jwtCfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetRole(c)})
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer abc").Code)

	w := serve(r, bearer(t, 9, domain.RoleClient))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9,"role":"CLIENT"}`, w.Body.String())
}

func TestAdminRequired(t *testing.T) {
	r := gin.New()
	r.GET("/x", AuthRequired(jwtCfg), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(r, bearer(t, 1, domain.RoleClient)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, bearer(t, 1, domain.RoleAdmin)).Code)
}

type stubUsers map[uint]*models.User

func (s stubUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if id == 500 {
		return nil, errors.New("connection refused")
	}
	u, ok := s[id]
	if !ok {
		return nil, domain.NotFound("user", id)
	}
	return u, nil
}

func TestActiveAccount(t *testing.T) {
	users := stubUsers{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: false},
	}
	r := gin.New()
	r.GET("/x", AuthRequired(jwtCfg), ActiveAccount(users), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, bearer(t, 1, domain.RoleClient)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, bearer(t, 2, domain.RoleClient)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, bearer(t, 3, domain.RoleClient)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, bearer(t, 500, domain.RoleClient)).Code)
}

func TestRateLimiterFixedWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)
	rl := NewRateLimiter(cache.NewMemoryStore(), 2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := rl.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = rl.Allow(ctx, "a")
	assert.True(t, ok)
	ok, retry := rl.Allow(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 50*time.Second, retry)

	ok, _ = rl.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow(ctx, "a")
	assert.True(t, ok, "new window")
}

type brokenStore struct{ cache.Store }

func (brokenStore) Incr(context.Context, string) (int64, error) { return 0, errors.New("redis down") }

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(NewRateLimiter(brokenStore{}, 1, time.Minute)), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, "").Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(NewRateLimiter(cache.NewMemoryStore(), 1, time.Hour)), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, "").Code)
	w := serve(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRequestIDAndLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
