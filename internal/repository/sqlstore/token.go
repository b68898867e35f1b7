package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
	"github.com/sakif/profiles-api/internal/repository"
)

var _ repository.TokenRepository = (*DB)(nil)

// ReplaceToken makes token the account's only token. The old row (if any) is
// removed in the same transaction, so a concurrent lookup sees either the old
// token or the new one, never both.
func (db *DB) ReplaceToken(ctx context.Context, token *model.AuthToken) error {
	token.ID = xid.New().String()
	token.CreatedAt = time.Now().UTC()

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM auth_tokens WHERE account_id = ?`), token.AccountID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO auth_tokens (id, account_id, key_hash, created_at) VALUES (?, ?, ?, ?)`),
			token.ID,
			token.AccountID,
			token.KeyHash,
			token.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlstore: replacing token for account %d: %w", token.AccountID, err)
	}
	return nil
}

func (db *DB) GetTokenByHash(ctx context.Context, keyHash string) (*model.AuthToken, error) {
	var t model.AuthToken
	err := db.conn.GetContext(ctx, &t, db.conn.Rebind(
		`SELECT id, account_id, key_hash, created_at FROM auth_tokens WHERE key_hash = ?`), keyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("token", "(redacted)")
		}
		return nil, fmt.Errorf("sqlstore: getting token: %w", err)
	}
	return &t, nil
}

func (db *DB) DeleteTokensForAccount(ctx context.Context, accountID int64) error {
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`DELETE FROM auth_tokens WHERE account_id = ?`), accountID)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting tokens for account %d: %w", accountID, err)
	}
	return nil
}
