package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
)

// Token errors. The Authority turns both into an authentication failure;
// they stay distinct so logs can tell them apart.
var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenIssuer mints a bearer token for an account and maps a presented token
// back to the account it was issued for.
type TokenIssuer interface {
	Issue(ctx context.Context, accountID int64) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
}

// TokenStore persists hashed opaque tokens.
type TokenStore interface {
	ReplaceToken(ctx context.Context, token *model.AuthToken) error
	GetTokenByHash(ctx context.Context, keyHash string) (*model.AuthToken, error)
}

// tokenBytes is the amount of randomness in an opaque token.
const tokenBytes = 32

// OpaqueTokens issues random tokens and keeps only their SHA-256 hash.
//
// Each account holds at most one token: Issue replaces whatever was there,
// so logging in again invalidates the previous token. A leaked database dump
// contains hashes only, which cannot be presented as credentials.
type OpaqueTokens struct {
	store  TokenStore
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

// NewOpaqueTokens returns an issuer backed by store. A ttl of 0 means tokens
// never expire.
func NewOpaqueTokens(store TokenStore, ttl time.Duration) *OpaqueTokens {
	return &OpaqueTokens{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		random: rand.Reader,
	}
}

func (o *OpaqueTokens) Issue(ctx context.Context, accountID int64) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(o.random, buf); err != nil {
		return "", fmt.Errorf("auth: generating token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	record := &model.AuthToken{
		AccountID: accountID,
		KeyHash:   hashToken(raw),
	}
	if err := o.store.ReplaceToken(ctx, record); err != nil {
		return "", err
	}
	return raw, nil
}

func (o *OpaqueTokens) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	record, err := o.store.GetTokenByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, err
	}

	if o.ttl > 0 && o.now().Sub(record.CreatedAt) > o.ttl {
		return 0, ErrTokenExpired
	}
	return record.AccountID, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
