package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", "bookrag")

	pair, err := svc.GenerateTokenPair("user-1", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)

	claims, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "access", claims.TokenType)
	require.Equal(t, "bookrag", claims.Issuer)
}

func TestJWTService_WrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a", "bookrag")
	other := NewJWTService("secret-b", "bookrag")

	pair, err := svc.GenerateTokenPair("user-1", "alice")
	require.NoError(t, err)

	_, err = other.ValidateToken(pair.AccessToken)
	require.Error(t, err)
}

func TestJWTService_RefreshAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", "bookrag")

	pair, err := svc.GenerateTokenPair("user-1", "alice")
	require.NoError(t, err)

	newPair, err := svc.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, newPair.AccessToken)

	// 访问令牌不能用于刷新
	_, err = svc.RefreshAccessToken(pair.AccessToken)
	require.Error(t, err)
}

func TestExtractTokenFromBearer(t *testing.T) {
	require.Equal(t, "abc", ExtractTokenFromBearer("Bearer abc"))
	require.Equal(t, "abc", ExtractTokenFromBearer("abc"))
	require.Equal(t, "", ExtractTokenFromBearer(""))
}
