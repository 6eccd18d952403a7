package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/example/staffmatch/internal/auth"
)

const secret = "test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protected(t *testing.T, roles ...string) *httptest.Server {
	t.Helper()
	handler := auth.Middleware(secret, roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.NotEmpty(t, claims.Role)
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	srv := protected(t, "carer", "coordinator")
	require.Equal(t, http.StatusOK, get(t, srv.URL, signToken(t, "carer")))
	require.Equal(t, http.StatusOK, get(t, srv.URL, signToken(t, "coordinator")))
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	srv := protected(t, "carer")
	require.Equal(t, http.StatusUnauthorized, get(t, srv.URL, ""))
}

func TestMiddlewareRejectsWrongRole(t *testing.T) {
	srv := protected(t, "coordinator")
	require.Equal(t, http.StatusForbidden, get(t, srv.URL, signToken(t, "carer")))
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	claims := auth.Claims{
		Role: "carer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	srv := protected(t, "carer")
	require.Equal(t, http.StatusUnauthorized, get(t, srv.URL, token))
}

func TestMiddlewareRejectsBadSignature(t *testing.T) {
	claims := auth.Claims{Role: "carer"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	srv := protected(t, "carer")
	require.Equal(t, http.StatusUnauthorized, get(t, srv.URL, token))
}
