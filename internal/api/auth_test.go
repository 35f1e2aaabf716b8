package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edusphere/go-classroom/internal/config"
	"github.com/edusphere/go-classroom/internal/testutil"
)

func newAuthTestApp(t *testing.T) *ClassroomApp {
	t.Helper()
	return NewClassroomApp(http.NewServeMux(), testutil.TestLogger(t), nil, nil, &config.Config{
		SigningKey: []byte("test-signing-key"),
	})
}

func TestJwtRoundTrip(t *testing.T) {
	app := newAuthTestApp(t)

	token, err := app.createJwtForSession(42, time.Hour)
	assert.NoError(t, err, "expected token creation to succeed")
	assert.NotEmpty(t, token)

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected token to verify")
	assert.Equal(t, 42, userId, "expected user id claim to round trip")
}

func TestExtractUserIdFromToken(t *testing.T) {
	t.Run("expired token", func(t *testing.T) {
		app := newAuthTestApp(t)

		token, err := app.createJwtForSession(1, -time.Minute)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected expired token to be rejected")
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		app := newAuthTestApp(t)
		other := NewClassroomApp(http.NewServeMux(), testutil.TestLogger(t), nil, nil, &config.Config{
			SigningKey: []byte("some-other-key"),
		})

		token, err := other.createJwtForSession(1, time.Hour)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected foreign signature to be rejected")
	})

	t.Run("garbage token", func(t *testing.T) {
		app := newAuthTestApp(t)
		_, err := app.extractUserIdFromToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestCreateJwtCookie(t *testing.T) {
	cookie := createJwtCookie("sometoken", time.Hour)
	assert.Equal(t, tokenCookieKey, cookie.Name)
	assert.Equal(t, "sometoken", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly, "expected cookie to be http-only")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cookie.Expires, time.Minute)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("s3cret")
	assert.NoError(t, err, "expected hashing to succeed")
	assert.NotEqual(t, "s3cret", hash, "expected hash to differ from the password")

	assert.True(t, verifyPassword(hash, "s3cret"), "expected correct password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected wrong password to fail")
}

func TestUserIdContext(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	assert.NoError(t, err)

	_, ok := UserId(req.Context())
	assert.False(t, ok, "expected no user id on a fresh context")

	ctx := WithUserId(req.Context(), 7)
	userId, ok := UserId(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, userId)
}
