package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingSecret = errors.New("jwt secret not configured")

type Claims struct {
	UserID   string  `json:"user_id"`
	Role     string  `json:"role"`
	Email    *string `json:"email,omitempty"`
	SchoolID *string `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs access tokens with a fixed secret, issuer and validity
// window. Construction fails on a missing secret so misconfiguration is
// caught at startup rather than on the first login.
type Issuer struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Sign mints a token for the given claims. The jti claim carries a fresh
// UUID so two tokens minted in the same second never collide on the
// sessions table's unique token column.
func (i *Issuer) Sign(claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
