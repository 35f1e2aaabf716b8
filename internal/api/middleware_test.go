package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	t.Run("no cookie", func(t *testing.T) {
		app := newAuthTestApp(t)

		called := false
		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest(http.MethodGet, "/api/account", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 without a token cookie")
		assert.False(t, called, "expected handler not to be called")
	})

	t.Run("invalid token", func(t *testing.T) {
		app := newAuthTestApp(t)

		called := false
		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})

		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected 401 for an invalid token")
		assert.False(t, called, "expected handler not to be called")
	})

	t.Run("valid token passes user id through", func(t *testing.T) {
		app := newAuthTestApp(t)

		token, err := app.createJwtForSession(42, time.Hour)
		assert.NoError(t, err)

		var gotUserId int
		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			userId, ok := UserId(r.Context())
			assert.True(t, ok, "expected user id in request context")
			gotUserId = userId
		})

		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, 42, gotUserId, "expected user id from the token")
		assert.Equal(t, "no-store, no-cache, must-revalidate, private", rr.Header().Get("Cache-Control"))
	})
}

func TestErrorHandler(t *testing.T) {
	t.Run("recovers from a panicking handler", func(t *testing.T) {
		app := newAuthTestApp(t)

		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected 500 after panic")
		assert.Equal(t, "close", rr.Header().Get("Connection"))
	})

	t.Run("passes normal requests through", func(t *testing.T) {
		app := newAuthTestApp(t)

		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, rr.Code)
	})
}
