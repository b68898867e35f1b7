// Package auth is the credential authority: it checks email/password pairs,
// issues bearer tokens, and resolves presented tokens back to a Principal.
//
// LOGIN FLOW:
//  1. POST /login with {email, password}
//  2. Authority looks the account up by email and bcrypt-compares the password
//  3. On success a TokenIssuer mints a token, returned as {"token": "..."}
//  4. Later requests send "Authorization: Token <key>"; the Authenticate
//     middleware resolves it and puts the Principal in the request context
//
// Every failure in step 2 produces the same error, so a caller cannot tell an
// unknown email from a wrong password.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
)

// Messages shown to clients. They are fixed strings on purpose: nothing about
// which check failed reaches the response.
const (
	msgBadCredentials = "Unable to log in with provided credentials."
	msgInvalidToken   = "Invalid token."
)

// AccountLookup is the subset of the account repository the authority needs.
type AccountLookup interface {
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID          int64
	Email       string
	IsStaff     bool
	IsSuperuser bool
}

// Authority ties password checking to token issuance.
type Authority struct {
	accounts  AccountLookup
	passwords *PasswordService
	tokens    TokenIssuer
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthority returns an Authority. tokens selects the token format
// (OpaqueTokens or JWTTokens).
func NewAuthority(accounts AccountLookup, passwords *PasswordService, tokens TokenIssuer, logger *slog.Logger) *Authority {
	return &Authority{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Authenticate checks the credentials and returns the account with a freshly
// issued token. email must already be normalized by the caller.
func (a *Authority) Authenticate(ctx context.Context, email, password string) (*model.Account, string, error) {
	account, err := a.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, "", err
		}
		// Spend the same bcrypt time as a real comparison.
		_ = a.passwords.Verify(a.dummy(), password)
		return nil, "", apperror.Unauthenticated(msgBadCredentials)
	}

	if err := a.passwords.Verify(account.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrPasswordMismatch) {
			a.logger.Error("stored password hash unusable", "account_id", account.ID, "error", err)
		}
		return nil, "", apperror.Unauthenticated(msgBadCredentials)
	}

	if !account.IsActive {
		a.logger.Info("login refused for inactive account", "account_id", account.ID)
		return nil, "", apperror.Unauthenticated(msgBadCredentials)
	}

	token, err := a.tokens.Issue(ctx, account.ID)
	if err != nil {
		return nil, "", err
	}

	a.logger.Info("account logged in", "account_id", account.ID)
	return account, token, nil
}

// Resolve maps a presented token to its Principal. Unknown, expired and
// malformed tokens, and tokens of deleted or inactive accounts, all fail
// with the same authentication error.
func (a *Authority) Resolve(ctx context.Context, token string) (*Principal, error) {
	id, err := a.tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) {
			a.logger.Debug("token rejected", "error", err)
			return nil, apperror.Unauthenticated(msgInvalidToken)
		}
		return nil, err
	}

	account, err := a.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(msgInvalidToken)
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, apperror.Unauthenticated("User inactive or deleted.")
	}

	return &Principal{
		ID:          account.ID,
		Email:       account.Email,
		IsStaff:     account.IsStaff,
		IsSuperuser: account.IsSuperuser,
	}, nil
}

// dummy returns a valid hash at the configured cost, computed on first use.
func (a *Authority) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := a.passwords.Hash("dummy-password-for-timing")
		if err != nil {
			a.logger.Error("computing dummy hash", "error", err)
			return
		}
		a.dummyHash = h
	})
	return a.dummyHash
}
