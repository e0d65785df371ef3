package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not equal the plain text")
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("x", 73)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if _, err := HashPassword(strings.Repeat("x", 72)); err != nil {
		t.Fatalf("72 bytes should hash, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	cheap, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !NeedsRehash(string(cheap)) {
		t.Fatalf("min-cost hash should need a rehash")
	}

	current, _ := HashPassword("pw")
	if NeedsRehash(current) {
		t.Fatalf("default-cost hash should not need a rehash")
	}
	if !NeedsRehash("not-a-hash") {
		t.Fatalf("garbage should need a rehash")
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	err := CheckPassword("not-a-hash", "pw")
	if err == nil || errors.Is(err, ErrMismatch) {
		t.Fatalf("malformed hash should be a distinct error, got %v", err)
	}
}
