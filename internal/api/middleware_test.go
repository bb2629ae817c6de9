package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchparty/server/internal/database"
)

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t, &database.MockWatchPartyRepository{})

	next := func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		require.True(t, ok, "expected user id in request context")
		assert.Equal(t, 42, userId)
		w.WriteHeader(http.StatusOK)
	}

	t.Run("missing cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)

		app.authMiddleware(next)(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})

		app.authMiddleware(next)(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := app.createJwtForSession(42, time.Hour)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		app.authMiddleware(next)(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
	})
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp(t, &database.MockWatchPartyRepository{})

	h := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)

	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected a panic to surface as 500")
}
