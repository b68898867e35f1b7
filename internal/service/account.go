// Package service contains the business rules of the API.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, applies the owner rule, orchestrates
//	Repository      → reads/writes the database
//
// Services take repository interfaces, so tests run them against in-memory
// fakes and the same code backs both the HTTP server and the admin CLI.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/policy"
	"github.com/sakif/profiles-api/internal/repository"
)

const msgDuplicateEmail = "profile with this email already exists."

// RegisterInput is the payload of POST /profiles.
type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,max=255,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries the writable profile fields. A nil field was not
// supplied by the client.
type ProfileUpdate struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email"    validate:"omitempty,min=1,max=255,email"`
	Password *string `json:"password" validate:"omitempty,min=1"`
}

// AuthResult bundles the account that logged in with its bearer token.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// Authenticator checks credentials and issues a token. *auth.Authority
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.Account, string, error)
}

// AccountStore is the account table plus the ability to end an account's
// token sessions. *sqlstore.DB implements it.
type AccountStore interface {
	repository.AccountRepository
	DeleteTokensForAccount(ctx context.Context, accountID int64) error
}

// AccountService manages profiles.
type AccountService struct {
	accounts  AccountStore
	passwords *auth.PasswordService
	authn     Authenticator
	rule      policy.Rule[*model.Account]
	logger    *slog.Logger
}

// NewAccountService wires an AccountService. rule decides who may edit a
// profile; the API uses policy.UpdateOwnProfile.
func NewAccountService(
	accounts AccountStore,
	passwords *auth.PasswordService,
	authn Authenticator,
	rule policy.Rule[*model.Account],
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		passwords: passwords,
		authn:     authn,
		rule:      rule,
		logger:    logger,
	}
}

// NormalizeEmail trims and lowercases an email address. Emails are unique
// case-insensitively, so every lookup and write goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active, unprivileged account. The plaintext password
// is hashed here and never stored or logged.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			s.logger.Error("failed to create profile", slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.logger.Info("profile registered", slog.Int64("account_id", account.ID))
	return account, nil
}

// CreateSuperuser registers an account and grants it staff and superuser
// rights. Only the admin CLI calls it.
func (s *AccountService) CreateSuperuser(ctx context.Context, in RegisterInput) (*model.Account, error) {
	account, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}

	account.IsStaff = true
	account.IsSuperuser = true
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("superuser created", slog.Int64("account_id", account.ID))
	return account, nil
}

// UpdateProfile applies upd to the target profile on behalf of actingID.
//
// Checks run in this order: the profile must exist, the actor must own it,
// then the payload must be valid. In Replace mode every field is required.
func (s *AccountService) UpdateProfile(ctx context.Context, actingID, targetID int64, upd ProfileUpdate, mode UpdateMode) (*model.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.rule.Authorize(actingID, policy.ActionUpdate, account); err != nil {
		s.logger.Warn("profile update denied",
			slog.Int64("actor_id", actingID),
			slog.Int64("account_id", targetID),
		)
		return nil, err
	}

	trimPtr(upd.Name)
	if upd.Email != nil {
		normalized := NormalizeEmail(*upd.Email)
		upd.Email = &normalized
	}

	fields, err := fieldErrors(upd)
	if err != nil {
		return nil, err
	}
	if mode == Replace {
		fields = requireAll(fields, map[string]bool{
			"name":     upd.Name != nil,
			"email":    upd.Email != nil,
			"password": upd.Password != nil,
		})
	}
	if len(fields) > 0 {
		return nil, apperror.InvalidFields(fields)
	}

	if upd.Name != nil {
		account.Name = *upd.Name
	}
	if upd.Email != nil && *upd.Email != account.Email {
		if err := s.ensureEmailFree(ctx, *upd.Email, account.ID); err != nil {
			return nil, err
		}
		account.Email = *upd.Email
	}
	if upd.Password != nil {
		hash, err := s.hashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
	}

	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.Int64("account_id", account.ID))
	return account, nil
}

// SetFlags overwrites the administrative flags of an account. Deactivating
// an account also revokes its stored token, so reactivation requires a new
// login.
func (s *AccountService) SetFlags(ctx context.Context, targetID int64, flags model.AccountFlags) (*model.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	deactivating := account.IsActive && !flags.IsActive
	account.IsActive = flags.IsActive
	account.IsStaff = flags.IsStaff
	account.IsSuperuser = flags.IsSuperuser
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	if deactivating {
		if err := s.accounts.DeleteTokensForAccount(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("profile flags changed",
		slog.Int64("account_id", account.ID),
		slog.Bool("active", flags.IsActive),
		slog.Bool("staff", flags.IsStaff),
		slog.Bool("superuser", flags.IsSuperuser),
	)
	return account, nil
}

// Delete removes an account together with its posts and token.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.logger.Info("profile deleted", slog.Int64("account_id", id))
	return nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	return s.accounts.GetAccountByID(ctx, id)
}

// GetByEmail looks an account up by email, in any letter case.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.accounts.GetAccountByEmail(ctx, NormalizeEmail(email))
}

// List returns all profiles, or those whose name or email contains search
// (case-insensitive).
func (s *AccountService) List(ctx context.Context, search string) ([]model.Account, error) {
	return s.accounts.ListAccounts(ctx, repository.AccountFilter{Search: strings.TrimSpace(search)})
}

// Authenticate checks an email/password pair and issues a token.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	fields := map[string]string{}
	if email == "" {
		fields["email"] = msgRequired
	}
	if password == "" {
		fields["password"] = msgRequired
	}
	if len(fields) > 0 {
		return nil, apperror.InvalidFields(fields)
	}

	account, token, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Token: token}, nil
}

// ensureEmailFree fails if email belongs to an account other than selfID.
// The store's unique index still backs this up against concurrent writers.
func (s *AccountService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.accounts.GetAccountByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return apperror.ValidationFailed("email", msgDuplicateEmail)
	default:
		return nil
	}
}

func (s *AccountService) hashPassword(plaintext string) (string, error) {
	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password", "Ensure this field has no more than 72 bytes.")
		}
		return "", err
	}
	return hash, nil
}

// requireAll adds a "required" message for every field not present,
// keeping any message already recorded for it.
func requireAll(fields map[string]string, present map[string]bool) map[string]string {
	for name, ok := range present {
		if ok {
			continue
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		if _, exists := fields[name]; !exists {
			fields[name] = msgRequired
		}
	}
	return fields
}
