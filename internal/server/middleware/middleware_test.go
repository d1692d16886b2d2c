package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/prono/internal/auth"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// contextHandler captures context values set by middleware.
type contextHandler struct {
	userID   int64
	hasUser  bool
	username string
	called   bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, h.hasUser = middleware.UserIDFromContext(r.Context())
	h.username, _ = middleware.UsernameFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func setUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), userID, "u"))
}

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		ctx := middleware.WithUser(context.Background(), 7, "alice")

		id, ok := middleware.UserIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, int64(7), id)

		name, ok := middleware.UsernameFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "alice", name)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()

		_, ok := middleware.UserIDFromContext(context.Background())
		assert.False(t, ok)
		_, ok = middleware.UsernameFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, "7")
		_, ok := middleware.UserIDFromContext(ctx)
		assert.False(t, ok)
	})
}

// ===========================================================================
// 2. RateLimit middleware
// ===========================================================================

func TestRateLimit_NoUserInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	// First two requests consume the burst.
	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 1))
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	// Third request exceeds burst.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 1))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_IndependentPerUser(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 1))
	require.Equal(t, http.StatusOK, recA.Code)

	// User 1 is now exhausted.
	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 1))
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	// User 2 should still be allowed.
	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), 2))
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP_IndependentPerAddress(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	request := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/token/pair", http.NoBody)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

// ===========================================================================
// 3. Auth middleware
// ===========================================================================

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, 42, "admin", 15*time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	handler := middleware.Auth(testJWTSecret)(capture)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, capture.called, "inner handler must be called")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), capture.userID)
	assert.Equal(t, "admin", capture.username)
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	expired, err := auth.IssueAccessToken(testJWTSecret, 1, "u", -1*time.Second)
	require.NoError(t, err)
	wrongSecret, err := auth.IssueAccessToken("correct-secret", 1, "u", time.Minute)
	require.NoError(t, err)
	refresh, err := auth.IssueRefreshToken(testJWTSecret, 1, "u", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "no header", authHeader: ""},
		{name: "garbage token", authHeader: "Bearer totally.invalid.token"},
		{name: "expired token", authHeader: "Bearer " + expired},
		{name: "wrong secret", authHeader: "Bearer " + wrongSecret},
		{name: "refresh token", authHeader: "Bearer " + refresh},
		{name: "Basic scheme", authHeader: "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "Unauthorized")
		})
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, 1, "u", 15*time.Minute)
	require.NoError(t, err)

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Authorization", prefix+token)
		rec := httptest.NewRecorder()

		middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)

		assert.Equalf(t, http.StatusOK, rec.Code, "prefix %q", prefix)
	}
}

// ===========================================================================
// 4. WSAuth middleware
// ===========================================================================

func TestWSAuth(t *testing.T) {
	t.Parallel()

	valid, err := auth.IssueAccessToken(testJWTSecret, 3, "carol", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    string
		wantUser bool
		wantID   int64
		wantName string
	}{
		{name: "valid token", query: "?token=" + valid, wantUser: true, wantID: 3, wantName: "carol"},
		{name: "missing token is anonymous", query: "", wantName: domain.AnonymousUsername},
		{name: "invalid token is anonymous", query: "?token=bogus", wantName: domain.AnonymousUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			capture := &contextHandler{}
			req := httptest.NewRequest(http.MethodGet, "/ws/projects/1/"+tt.query, http.NoBody)
			rec := httptest.NewRecorder()

			middleware.WSAuth(testJWTSecret)(capture).ServeHTTP(rec, req)

			require.True(t, capture.called, "upgrades are never rejected")
			assert.Equal(t, tt.wantUser, capture.hasUser)
			assert.Equal(t, tt.wantID, capture.userID)
			assert.Equal(t, tt.wantName, capture.username)
		})
	}
}
