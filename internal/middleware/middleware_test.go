package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// run executes mw around a handler that echoes the uid and returns the handler error
func run(mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, string, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := mw(func(c echo.Context) error {
		seen = UIDFromContext(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seen, err
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestJWTAuthMiddleware(t *testing.T) {
	mw := JWTAuthMiddleware(testSecret)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	t.Run("uid claim", func(t *testing.T) {
		token := signToken(t, &Claims{UID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, testSecret)
		rec, uid, err := run(mw, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", uid)
	})

	t.Run("subject fallback", func(t *testing.T) {
		token := signToken(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u2", ExpiresAt: future}}, testSecret)
		_, uid, err := run(mw, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "u2", uid)
	})

	t.Run("missing header", func(t *testing.T) {
		_, _, err := run(mw, "")
		assertUnauthorized(t, err)
	})

	t.Run("not bearer", func(t *testing.T) {
		_, _, err := run(mw, "Basic abc")
		assertUnauthorized(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, &Claims{UID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, "other")
		_, uid, err := run(mw, "Bearer "+token)
		assertUnauthorized(t, err)
		assert.Empty(t, uid)
	})

	t.Run("expired", func(t *testing.T) {
		past := jwt.NewNumericDate(time.Now().Add(-time.Hour))
		token := signToken(t, &Claims{UID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}, testSecret)
		_, _, err := run(mw, "Bearer "+token)
		assertUnauthorized(t, err)
	})

	t.Run("no identity", func(t *testing.T) {
		token := signToken(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, testSecret)
		_, _, err := run(mw, "Bearer "+token)
		assertUnauthorized(t, err)
	})
}

type stubVerifier struct {
	tokens map[string]string
}

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := s.tokens[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	mw := FirebaseAuthMiddleware(stubVerifier{tokens: map[string]string{"good": "fb-user"}})

	_, uid, err := run(mw, "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, "fb-user", uid)

	_, uid, err = run(mw, "Bearer bad")
	assertUnauthorized(t, err)
	assert.Empty(t, uid)

	_, _, err = run(mw, "")
	assertUnauthorized(t, err)
}

func TestUIDFromContextAnonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Empty(t, UIDFromContext(c))
}
