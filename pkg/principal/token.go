package principal

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidSecretLength = errors.New("token secret must be at least 32 bytes")
)

// TokenService issues and validates bearer tokens whose subject is a
// principal URL. Tokens are HMAC-signed; possession of one stands in for
// the password of the principal it names.
type TokenService struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

// NewTokenService builds a token service. The secret must be at least 32
// bytes.
func NewTokenService(secret, issuer string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if issuer == "" {
		issuer = "perch"
	}
	if lifetime == 0 {
		lifetime = 15 * time.Minute
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, lifetime: lifetime}, nil
}

// Issue creates a signed token for the principal URL.
func (s *TokenService) Issue(principalURL string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   principalURL,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", principalURL, err)
	}
	return signed, nil
}

// Verify validates a token and returns the principal URL it names.
func (s *TokenService) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
