package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/hours-watch/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAPISecretRequired(t *testing.T) {
	h := middleware.APISecretRequired("s3cret")(ok)

	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer s3cret"))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer nope"))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, serve(h, ""))

	unset := middleware.APISecretRequired("")(ok)
	assert.Equal(t, http.StatusInternalServerError, serve(unset, "Bearer "))
}

func TestAuthRequired(t *testing.T) {
	jwtSvc := jwt.NewJWTService("test-secret-key-for-jwt", "1h")
	h := jwtauth.Verifier(jwtSvc.JWTAuth())(middleware.AuthRequired(jwtSvc)(middleware.AdminOnly(ok)))

	access, _, err := jwtSvc.GenerateAccessToken("admin", "admin@example.com")
	require.NoError(t, err)
	sseToken, _, err := jwtSvc.GenerateSSEToken("admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer "+access))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer "+sseToken))
	assert.Equal(t, http.StatusUnauthorized, serve(h, ""))

	jwtSvc.RevokeToken(access)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer "+access))
}
