package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swiftparcel/delivery/internal/apperr"
)

// Verifier validates HS256 bearer tokens issued by the auth service and
// extracts the principal from the userId/role claims.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (v *Verifier) Parse(token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Principal{}, apperr.Unauthenticated("invalid token: %v", err)
	}

	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return Principal{}, apperr.Unauthenticated("invalid userId claim")
	}
	role, err := ParseRole(c.Role)
	if err != nil {
		return Principal{}, apperr.Unauthenticated("invalid role claim")
	}

	return Principal{UserID: userID, Role: role}, nil
}
