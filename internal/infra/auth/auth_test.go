package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := Inspect("Bearer " + signed(t, exp))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.True(t, claims.ExpiresAt.Time.Equal(exp))

	_, err = Inspect("   ")
	require.ErrorIs(t, err, ErrEmptyToken)

	_, err = Inspect("not-a-jwt")
	require.Error(t, err)
}

func TestExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.False(t, Expired(signed(t, now.Add(time.Hour)), now))
	assert.True(t, Expired(signed(t, now.Add(-time.Minute)), now))
	assert.True(t, Expired("", now))
	assert.False(t, Expired("opaque-token", now), "opaque tokens have no expiry")
}

type checkerFunc func(ctx context.Context) (bool, error)

func (f checkerFunc) Authenticated(ctx context.Context) (bool, error) { return f(ctx) }

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	cases := []struct {
		name    string
		checker checkerFunc
		code    int
		body    string
	}{
		{"authenticated", func(context.Context) (bool, error) { return true, nil }, http.StatusTeapot, ""},
		{"anonymous", func(context.Context) (bool, error) { return false, nil }, http.StatusUnauthorized, `{"error":"login_required"}`},
		{"store down", func(context.Context) (bool, error) { return false, errors.New("redis down") }, http.StatusInternalServerError, `{"error":"session_unavailable"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMiddleware(tc.checker, zap.NewNop())(ok)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/state", nil))
			assert.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}
