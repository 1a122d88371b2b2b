package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lead-scraper/internal/config"
)

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing-minimum-32-bytes",
		ExpirationHours: expirationHours,
	})
}

func signClaims(t *testing.T, s *JWTService, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: claims}).SignedString([]byte(s.config.Secret))
	require.NoError(t, err)
	return token
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := setupTestJWTService(t, 24)

	token, err := service.GenerateToken("ops")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTService_GenerateToken_UniqueIDs(t *testing.T) {
	service := setupTestJWTService(t, 24)

	first, err := service.GenerateToken("ops")
	require.NoError(t, err)
	second, err := service.GenerateToken("ops")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	c1, err := service.ValidateToken(first)
	require.NoError(t, err)
	c2, err := service.ValidateToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestJWTService_GenerateToken_EmptyOperator(t *testing.T) {
	_, err := setupTestJWTService(t, 24).GenerateToken("")
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_InvalidSignature(t *testing.T) {
	service1 := setupTestJWTService(t, 24)
	service2 := setupTestJWTService(t, 24)
	service2.config.Secret = "different-secret-key-for-jwt-signing-minimum-32-bytes"

	token, err := service1.GenerateToken("ops")
	require.NoError(t, err)

	claims, err := service2.ValidateToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.Contains(t, err.Error(), "signature")
}

func TestJWTService_ValidateToken_Rejected(t *testing.T) {
	service := setupTestJWTService(t, 24)
	now := time.Now()

	tests := []struct {
		name    string
		token   string
		wantMsg string
	}{
		{name: "empty token", token: "", wantMsg: "empty"},
		{name: "one part", token: "invalid", wantMsg: "malformed"},
		{name: "two parts", token: "invalid.token", wantMsg: "malformed"},
		{name: "four parts", token: "invalid.token.format.extra", wantMsg: "malformed"},
		{
			name: "expired",
			token: signClaims(t, service, jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				Subject:   "ops",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
				IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			}),
			wantMsg: "expired",
		},
		{
			name: "foreign issuer",
			token: signClaims(t, service, jwt.RegisteredClaims{
				Issuer:    "someone-else",
				Subject:   "ops",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := setupTestJWTService(t, 1)
	token, err := service.GenerateToken("ops")
	require.NoError(t, err)

	claims, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	subject, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "ops", subject)
}
