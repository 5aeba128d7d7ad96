package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload: the admin identity plus the
// registered iat/exp claims.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var ErrEmptySecret = errors.New("jwt secret is empty")

// GenerateToken signs claims with HS256. IssuedAt and ExpiresAt are set from
// now and ttl.
func GenerateToken(secret string, claims Claims, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies signature, algorithm and expiry against now and
// returns the claims. Tokens without exp are rejected.
func ParseToken(secret, tokenStr string, now func() time.Time) (*Claims, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
