package model

import "time"

// AuthToken binds an opaque bearer token to one account.
// Only the SHA-256 hash of the token is stored; the token itself is shown once, at login.
type AuthToken struct {
	ID        string    `db:"id"`
	AccountID int64     `db:"account_id"`
	KeyHash   string    `db:"key_hash"`
	CreatedAt time.Time `db:"created_at"`
}
