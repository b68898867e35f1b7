package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, email, name, password_hash, is_active, is_staff, is_superuser`

// errDuplicateEmail is what a late UNIQUE failure on accounts.email turns into.
// The services check for duplicates first; this covers two concurrent registrations.
func errDuplicateEmail() error {
	return apperror.ValidationFailed("email", "profile with this email already exists.")
}

// CreateAccount inserts account and fills in its generated ID.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	err := db.conn.QueryRowxContext(ctx, db.conn.Rebind(
		`INSERT INTO accounts (email, name, password_hash, is_active, is_staff, is_superuser)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		account.Email,
		account.Name,
		account.PasswordHash,
		account.IsActive,
		account.IsStaff,
		account.IsSuperuser,
	).Scan(&account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicateEmail()
		}
		return fmt.Errorf("sqlstore: creating account: %w", err)
	}
	return nil
}

// GetAccountByID returns apperror.ErrNotFound if no account has that ID.
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	err := db.conn.GetContext(ctx, &a, db.conn.Rebind(
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlstore: getting account %d: %w", id, err)
	}
	return &a, nil
}

// GetAccountByEmail expects an already normalized (lowercased) email.
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := db.conn.GetContext(ctx, &a, db.conn.Rebind(
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", email)
		}
		return nil, fmt.Errorf("sqlstore: getting account by email: %w", err)
	}
	return &a, nil
}

// ListAccounts returns accounts in ID order, optionally filtered by a
// case-insensitive substring of name or email.
func (db *DB) ListAccounts(ctx context.Context, filter repository.AccountFilter) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query += ` WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY id`

	accounts := []model.Account{}
	if err := db.conn.SelectContext(ctx, &accounts, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: listing accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount writes every mutable column. Last write wins.
func (db *DB) UpdateAccount(ctx context.Context, account *model.Account) error {
	result, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`UPDATE accounts
		 SET email = ?, name = ?, password_hash = ?, is_active = ?, is_staff = ?, is_superuser = ?
		 WHERE id = ?`),
		account.Email,
		account.Name,
		account.PasswordHash,
		account.IsActive,
		account.IsStaff,
		account.IsSuperuser,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicateEmail()
		}
		return fmt.Errorf("sqlstore: updating account %d: %w", account.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", account.ID)
	}
	return nil
}

// DeleteAccount removes the account; its posts and token go with it (ON DELETE CASCADE).
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting account %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", id)
	}
	return nil
}
