package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordService_DefaultCost(t *testing.T) {
	if got := NewPasswordService(0).cost; got != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", got, DefaultBcryptCost)
	}
	if got := NewPasswordService(10).cost; got != 10 {
		t.Errorf("cost = %d, want 10", got)
	}
}

func TestHash_LooksBcryptWithCost(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != bcrypt.MinCost {
		t.Errorf("bcrypt.Cost() = %d, %v; want %d", cost, err, bcrypt.MinCost)
	}
	if strings.Contains(hash, "secret123") {
		t.Error("hash contains the plaintext")
	}
}

func TestHash_SaltIsRandom(t *testing.T) {
	ps := NewPasswordServiceForTest()

	h1, _ := ps.Hash("same-password")
	h2, _ := ps.Hash("same-password")
	if h1 == h2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_TooLong(t *testing.T) {
	ps := NewPasswordServiceForTest()

	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash(72 bytes) error = %v", err)
	}
	if _, err := ps.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash(73 bytes) error = %v, want ErrPasswordTooLong", err)
	}
}

func TestVerify(t *testing.T) {
	ps := NewPasswordServiceForTest()
	hash, _ := ps.Hash("secret123")

	if err := ps.Verify(hash, "secret123"); err != nil {
		t.Errorf("Verify(correct) error = %v", err)
	}
	if err := ps.Verify(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify(wrong) error = %v, want ErrPasswordMismatch", err)
	}
	if err := ps.Verify(hash, ""); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify(empty) error = %v, want ErrPasswordMismatch", err)
	}
}

func TestVerify_LongerThanBcryptLimit(t *testing.T) {
	ps := NewPasswordServiceForTest()
	stored := strings.Repeat("a", 72)
	hash, err := ps.Hash(stored)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, stored); err != nil {
		t.Errorf("Verify(exact 72 bytes) error = %v", err)
	}
	// bcrypt alone would accept these: it ignores everything after byte 72.
	for _, attempt := range []string{stored + "x", stored + "TOTALLY-DIFFERENT-SUFFIX"} {
		if err := ps.Verify(hash, attempt); !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("Verify(%d bytes) error = %v, want ErrPasswordMismatch", len(attempt), err)
		}
	}
}

func TestVerify_CorruptHash(t *testing.T) {
	ps := NewPasswordServiceForTest()

	err := ps.Verify("not-a-bcrypt-hash", "secret123")
	if err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify(corrupt) error = %v, want a non-mismatch error", err)
	}
}
