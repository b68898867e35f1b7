// Package model defines the data structures used throughout the application.
// Structs carry both `json` tags (API shape) and `db` tags (column names used by sqlx).
package model

// Account is a registered user.
//
// The password is only ever held as a bcrypt hash and the flags are never
// serialized: the public JSON shape of an account is id, name and email.
type Account struct {
	ID           int64  `json:"id"    db:"id"`
	Email        string `json:"email" db:"email"` // stored lowercased, unique
	Name         string `json:"name"  db:"name"`
	PasswordHash string `json:"-"     db:"password_hash"`
	IsActive     bool   `json:"-"     db:"is_active"` // inactive accounts cannot log in
	IsStaff      bool   `json:"-"     db:"is_staff"`
	IsSuperuser  bool   `json:"-"     db:"is_superuser"`
}

// String identifies an account by its email, which is also its login name.
func (a *Account) String() string {
	return a.Email
}

// AccountFlags is the administrative part of an account.
type AccountFlags struct {
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
}

// Flags returns the account's current administrative flags.
func (a *Account) Flags() AccountFlags {
	return AccountFlags{
		IsActive:    a.IsActive,
		IsStaff:     a.IsStaff,
		IsSuperuser: a.IsSuperuser,
	}
}
