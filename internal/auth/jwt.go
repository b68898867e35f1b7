package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtIssuer = "profiles-api"

	// DefaultJWTTTL applies when no TTL is configured. A JWT cannot be
	// revoked server-side, so it always carries an expiry.
	DefaultJWTTTL = 24 * time.Hour
)

// JWTTokens is a stateless TokenIssuer: the account id travels in the "sub"
// claim of an HS256-signed JWT and nothing is written to the database.
//
// The trade-off against OpaqueTokens is revocation: logging in again does
// not invalidate an earlier JWT, it simply expires.
type JWTTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokens returns a JWT issuer. The secret must be at least 16
// characters. A ttl of 0 selects DefaultJWTTTL.
func NewJWTTokens(secret string, ttl time.Duration) (*JWTTokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultJWTTTL
	}
	return &JWTTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (j *JWTTokens) Issue(_ context.Context, accountID int64) (string, error) {
	now := j.now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		Issuer:    jwtIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Resolve verifies the signature, issuer and expiry, then returns the
// account id from the subject.
//
// jwt.WithValidMethods pins HS256 so a token claiming "alg":"none" (or an
// asymmetric algorithm keyed with our secret) is rejected up front.
func (j *JWTTokens) Resolve(_ context.Context, tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return id, nil
}
