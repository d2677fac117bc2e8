package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("token: invalid")

type RandomTokenGenerator struct {
	Size int
}

// NewToken ignores subject; random tokens carry no claims.
func (g RandomTokenGenerator) NewToken(subject string) (string, error) {
	size := g.Size
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy read failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// JWTGenerator signs HS256 tokens whose subject is the user id. Expiry is
// enforced by the session store; when TTL is set the token also carries exp.
type JWTGenerator struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (g JWTGenerator) NewToken(subject string) (string, error) {
	if len(g.Secret) == 0 {
		return "", errors.New("token: jwt secret required")
	}
	now := g.now()
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Subject:  subject,
		Issuer:   g.Issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if g.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(g.TTL))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.Secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry.
func (g JWTGenerator) Verify(token string) error {
	_, err := g.Subject(token)
	return err
}

// Subject returns the user id a valid token was issued for.
func (g JWTGenerator) Subject(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	}
	if g.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return g.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (g JWTGenerator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
