package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func protected(t *testing.T, a *Auth) http.Handler {
	t.Helper()
	return a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	}))
}

func TestMiddlewareAcceptsBearerHeader(t *testing.T) {
	a := NewAuth("secret")
	token, err := a.IssueToken("u1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", rec.Body.String())
}

func TestMiddlewareAcceptsTokenQueryParam(t *testing.T) {
	a := NewAuth("secret")
	token, err := a.IssueToken("u1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x?token="+token, nil)
	rec := httptest.NewRecorder()
	protected(t, a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", rec.Body.String())
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	a := NewAuth("secret")
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	protected(t, a).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	a := NewAuth("secret")
	token, err := a.IssueToken("u1", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Expired token")
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	issuer := NewAuth("secret-a")
	token, err := issuer.IssueToken("u1", time.Minute)
	require.NoError(t, err)

	verifier := NewAuth("secret-b")
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, verifier).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid token")
}

func TestUserIDWithoutAuthIsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	require.Equal(t, "", UserID(req.Context()))
}
