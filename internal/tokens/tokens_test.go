package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMinter(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewMinter("", "secret", 0)
		assert.Error(t, err)

		_, err = NewMinter("key", "", 0)
		assert.Error(t, err)
	})

	t.Run("defaults ttl", func(t *testing.T) {
		m, err := NewMinter("key", "secret", 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultTTL, m.ttl)
	})
}

func TestMint(t *testing.T) {
	minter, err := NewMinter("api-key", "api-secret", time.Hour)
	require.NoError(t, err)

	signed, err := minter.Mint("alice", "Alice", "room-abc123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	// Parse the token back and verify the grants
	var claims Claims
	token, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (any, error) {
		return []byte("api-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "api-key", claims.Issuer)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.True(t, claims.Video.RoomJoin)
	assert.Equal(t, "room-abc123", claims.Video.Room)

	expiry := claims.ExpiresAt.Time
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)
}

func TestMintRejectsWrongSecret(t *testing.T) {
	minter, err := NewMinter("api-key", "api-secret", time.Hour)
	require.NoError(t, err)

	signed, err := minter.Mint("alice", "Alice", "room-abc123")
	require.NoError(t, err)

	var claims Claims
	_, err = jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (any, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}
