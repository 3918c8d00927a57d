package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

const testSecret = "test-secret"

type userMap map[int64]*models.User

func (m userMap) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTRoundTrip(t *testing.T) {
	user := &models.User{ID: 7, Email: "a@example.com"}

	token, expiresAt, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "7", claims.Subject)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)

	expired, _, err := GenerateJWT(user, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, testSecret)
	assert.Error(t, err)
}

func newProtectedRouter(users UserStore, limiter *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	g := r.Group("/", RequireAuth(users, testSecret), limiter.RateLimit())
	g.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c)})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	users := userMap{1: {ID: 1, Email: "a@example.com"}}
	r := newProtectedRouter(users, NewRateLimiter(100))

	valid, _, err := GenerateJWT(users[1], testSecret, time.Hour)
	require.NoError(t, err)
	ghost, _, err := GenerateJWT(&models.User{ID: 99}, testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Token " + valid, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghost, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `false`, jsonField(t, w.Body.Bytes(), "success"))
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	users := userMap{1: {ID: 1}, 2: {ID: 2}}
	r := newProtectedRouter(users, NewRateLimiter(2))

	call := func(id int64) *httptest.ResponseRecorder {
		token, _, err := GenerateJWT(users[id], testSecret, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := call(1)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, call(1).Code)
	assert.Equal(t, http.StatusTooManyRequests, call(1).Code)

	assert.Equal(t, http.StatusOK, call(2).Code, "buckets are per user")
}

func TestRateLimiterRefill(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60) // one token per minute
	rl.now = func() time.Time { return clock }

	for i := 0; i < 60; i++ {
		require.True(t, rl.take(7).ok)
	}
	denied := rl.take(7)
	assert.False(t, denied.ok)
	assert.InDelta(t, 60, denied.retryAfter.Seconds(), 0.001)

	clock = clock.Add(30 * time.Second)
	assert.False(t, rl.take(7).ok)

	clock = clock.Add(31 * time.Second)
	assert.True(t, rl.take(7).ok)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}

func jsonField(t *testing.T, body []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return string(m[key])
}

func TestCORSWithoutConfiguredOrigins(t *testing.T) {
	var handler gin.HandlerFunc
	require.NotPanics(t, func() { handler = CORS(nil) })

	r := gin.New()
	r.Use(handler)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", DefaultOrigin)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, DefaultOrigin, w.Header().Get("Access-Control-Allow-Origin"))
}
