package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

func TestGenerateJWT(t *testing.T) {
	jwtService := NewJWTService("test-secret")

	tests := []struct {
		name           string
		userID         int
		role           domain.Role
		expirationTime time.Time
	}{
		{
			name:           "Buyer token",
			userID:         123,
			role:           domain.RoleBuyer,
			expirationTime: time.Now().Add(time.Hour),
		},
		{
			name:           "Expired admin token",
			userID:         1,
			role:           domain.RoleAdmin,
			expirationTime: time.Now().Add(-time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtService.GenerateJWT(tt.userID, tt.role, tt.expirationTime)
			assert.NoError(t, err)
			assert.NotEmpty(t, token)
		})
	}
}

func TestValidateToken(t *testing.T) {
	jwtService := NewJWTService("test-secret")

	tests := []struct {
		name        string
		setup       func() string
		expectError bool
		wantUserID  int
		wantRole    domain.Role
	}{
		{
			name: "Valid token",
			setup: func() string {
				token, _ := jwtService.GenerateJWT(42, domain.RoleStaff, time.Now().Add(time.Hour))
				return token
			},
			wantUserID: 42,
			wantRole:   domain.RoleStaff,
		},
		{
			name: "Expired token",
			setup: func() string {
				token, _ := jwtService.GenerateJWT(42, domain.RoleStaff, time.Now().Add(-time.Hour))
				return token
			},
			expectError: true,
		},
		{
			name: "Signed with another secret",
			setup: func() string {
				token, _ := NewJWTService("other").GenerateJWT(42, domain.RoleAdmin, time.Now().Add(time.Hour))
				return token
			},
			expectError: true,
		},
		{
			name: "Foreign issuer",
			setup: func() string {
				claims := Claims{
					UserID: 42,
					Role:   domain.RoleAdmin,
					StandardClaims: jwt.StandardClaims{
						ExpiresAt: time.Now().Add(time.Hour).Unix(),
						Issuer:    "someone-else",
					},
				}
				token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
				return token
			},
			expectError: true,
		},
		{
			name: "Missing role",
			setup: func() string {
				token, _ := jwtService.GenerateJWT(42, "", time.Now().Add(time.Hour))
				return token
			},
			expectError: true,
		},
		{
			name:        "Garbage",
			setup:       func() string { return "not-a-token" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := jwtService.ValidateToken(tt.setup())
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUserID, claims.UserID)
			assert.Equal(t, tt.wantRole, claims.Role)
		})
	}
}
