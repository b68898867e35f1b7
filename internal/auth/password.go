package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when no cost is configured.
//
// Cost 12 takes roughly 250ms on a modern server. Tune it so a single hash
// stays in the 200–300ms range on production hardware.
const DefaultBcryptCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer passwords would be
// silently truncated by the library, so Hash rejects them instead.
const maxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// ErrPasswordTooLong is returned by Hash for inputs bcrypt cannot represent.
var ErrPasswordTooLong = fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)

// PasswordService hashes and verifies account passwords with bcrypt.
//
// The salt and cost are embedded in the hash string, so the whole output of
// Hash goes into accounts.password_hash and nothing else needs storing.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with the given bcrypt cost.
// A cost of 0 selects DefaultBcryptCost.
func NewPasswordService(cost int) *PasswordService {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest returns a PasswordService with bcrypt's minimum
// cost. Tests in other packages use it to keep hashing in the microseconds.
//
// Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. The comparison is constant
// time. A wrong password yields ErrPasswordMismatch; any other error means
// the stored hash itself is unusable.
func (p *PasswordService) Verify(hash, plaintext string) error {
	// bcrypt only looks at the first 72 bytes, and Hash never accepts more,
	// so a longer plaintext cannot be the stored password.
	if len(plaintext) > maxPasswordBytes {
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
