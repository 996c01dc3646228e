package auth

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hours-watch/internal/domain/auth"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessExp = "1h"
	testSecret    = "test-secret-key-for-jwt"
	testEmail     = "admin@example.com"
	testPassword  = "password123"
)

func newTestAuthService(t *testing.T) (auth.AuthService, jwt.Service) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	jwtSvc := jwt.NewJWTService(testSecret, testAccessExp)
	return NewAuthService(jwtSvc, testEmail, string(hash)), jwtSvc
}

func TestLogin_Success(t *testing.T) {
	svc, jwtSvc := newTestAuthService(t)

	resp, err := svc.Login(context.Background(), auth.LoginRequest{Email: " Admin@Example.com ", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotZero(t, resp.AccessTokenExpiresAt)

	token, err := jwtSvc.JWTAuth().Decode(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, token.Subject())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)

	tests := []struct {
		name string
		req  auth.LoginRequest
	}{
		{"wrong password", auth.LoginRequest{Email: testEmail, Password: "wrong-password"}},
		{"unknown email", auth.LoginRequest{Email: "someone@example.com", Password: testPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.req)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, jwtSvc := newTestAuthService(t)

	require.NoError(t, svc.Logout(context.Background(), "token-value"))
	assert.True(t, jwtSvc.IsTokenRevoked("token-value"))
	assert.ErrorIs(t, svc.Logout(context.Background(), ""), auth.ErrInvalidToken)
}

func TestIssueSSEToken(t *testing.T) {
	svc, jwtSvc := newTestAuthService(t)

	resp, err := svc.IssueSSEToken(context.Background(), AdminSubject)
	require.NoError(t, err)
	assert.Equal(t, 300, resp.ExpiresIn)

	subject, err := jwtSvc.ValidateSSEToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, subject)
}

func TestLoginRequest_Validate(t *testing.T) {
	req := auth.LoginRequest{Email: "not-an-email"}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
