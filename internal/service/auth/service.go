package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hours-watch/internal/domain/auth"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AdminSubject is the token subject of the dashboard account.
const AdminSubject = "admin"

type AuthServiceImpl struct {
	jwt.Service
	adminEmail   string
	passwordHash []byte
}

func NewAuthService(jwtService jwt.Service, adminEmail string, passwordHash string) auth.AuthService {
	return &AuthServiceImpl{
		Service:      jwtService,
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: []byte(passwordHash),
	}
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, loginReq auth.LoginRequest) (auth.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(loginReq.Email))
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(a.adminEmail)) == 1

	// Compare the hash even on an unknown email so both paths cost the same.
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(loginReq.Password))
	if !emailMatch || a.adminEmail == "" || passErr != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	var tokenResponse auth.TokenResponse
	var err error
	tokenResponse.AccessToken, tokenResponse.AccessTokenExpiresAt, err = a.Service.GenerateAccessToken(AdminSubject, a.adminEmail)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	return tokenResponse, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return auth.ErrInvalidToken
	}
	a.Service.RevokeToken(token)
	return nil
}

// IssueSSEToken implements auth.AuthService.
func (a *AuthServiceImpl) IssueSSEToken(ctx context.Context, subject string) (auth.SSETokenResponse, error) {
	if subject == "" {
		return auth.SSETokenResponse{}, auth.ErrInvalidToken
	}
	token, expiresIn, err := a.Service.GenerateSSEToken(subject)
	if err != nil {
		return auth.SSETokenResponse{}, fmt.Errorf("failed to create sse token: %w", err)
	}
	return auth.SSETokenResponse{Token: token, ExpiresIn: expiresIn}, nil
}
