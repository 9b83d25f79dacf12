package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	token, err := service.GenerateAccessToken("admin-1", "admin@example.com", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.IsSuperuser)
	assert.Equal(t, "admin-1", claims.Subject)
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	other := NewService("other-secret", time.Hour)

	token, err := service.GenerateAccessToken("admin-1", "admin@example.com", false)
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	service := NewService("test-secret", -time.Minute)

	token, err := service.GenerateAccessToken("admin-1", "admin@example.com", false)
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	_, err := service.ValidateAccessToken("not-a-token")
	assert.Error(t, err)
}
