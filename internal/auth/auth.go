// Package auth verifies the access credentials presented at connection
// establishment. Token issuance lives outside this service; only
// verification is implemented here.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/campuskit/campus-chat/internal/types"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the result of a successful token verification. The user
// record must still be loaded and checked for activity before the
// connection is admitted.
type Identity struct {
	UserId      string
	DisplayName string
	Role        types.Role
}

type Verifier interface {
	VerifyToken(tokenString string) (Identity, error)
}

const (
	userIdClaim      = "sub"
	displayNameClaim = "name"
	roleClaim        = "role"
)

type JWTVerifier struct {
	signingKey []byte
}

func NewJWTVerifier(signingKey []byte) *JWTVerifier {
	return &JWTVerifier{signingKey: signingKey}
}

func (v *JWTVerifier) VerifyToken(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return Identity{}, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	// display name and role are advisory; the store record is
	// authoritative for both once the user is loaded
	displayName, _ := claims[displayNameClaim].(string)
	role, _ := claims[roleClaim].(string)

	return Identity{
		UserId:      userId,
		DisplayName: displayName,
		Role:        types.Role(role),
	}, nil
}
