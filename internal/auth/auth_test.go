package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/campuskit/campus-chat/internal/types"
	"github.com/stretchr/testify/assert"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(key)
	assert.NoError(t, err, "expected token to sign")
	return s
}

func TestVerifyToken(t *testing.T) {
	v := NewJWTVerifier(testKey)

	t.Run("valid token", func(t *testing.T) {
		tokenString := signToken(t, testKey, jwt.MapClaims{
			"sub":  "u-1",
			"name": "alice",
			"role": "STUDENT",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		id, err := v.VerifyToken(tokenString)
		assert.NoError(t, err)
		assert.Equal(t, "u-1", id.UserId)
		assert.Equal(t, "alice", id.DisplayName)
		assert.Equal(t, types.RoleStudent, id.Role)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := v.VerifyToken("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString := signToken(t, testKey, jwt.MapClaims{
			"sub": "u-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := v.VerifyToken(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		tokenString := signToken(t, []byte("other-key"), jwt.MapClaims{
			"sub": "u-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := v.VerifyToken(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		tokenString := signToken(t, testKey, jwt.MapClaims{
			"name": "alice",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})

		_, err := v.VerifyToken(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
