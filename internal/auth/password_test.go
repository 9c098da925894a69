package auth

import (
	"errors"
	"strings"
	"testing"
)

// produced by an independent PBKDF2-HMAC-SHA256 implementation
const knownMaterial = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90$9875349dd9275e0123ebead1241c35571a0a58c7e6f90031d48a4739ab1c8646"

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewPasswordHasher()
	material, err := h.Hash("s3cret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	salt, digest, _ := strings.Cut(material, "$")
	if len(salt) != 64 || len(digest) != 64 {
		t.Fatalf("unexpected material shape: %q", material)
	}
	if !h.Verify("s3cret!", material) {
		t.Fatal("expected password to verify")
	}
	if h.Verify("s3cret?", material) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := NewPasswordHasher()
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Fatal("expected distinct materials for the same password")
	}
}

func TestVerifyKnownMaterial(t *testing.T) {
	h := NewPasswordHasher()
	if !h.Verify("admin123", knownMaterial) {
		t.Fatal("expected existing material to verify")
	}
	if h.Verify("admin124", knownMaterial) {
		t.Fatal("expected mismatch")
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := NewPasswordHasher().Hash(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestVerifyMalformedMaterial(t *testing.T) {
	h := NewPasswordHasher()
	for _, material := range []string{
		"",
		"nodelimiter",
		"a$b$c",
		"$" + strings.Repeat("ab", 32),
		"salt$",
		"salt$zz",
		"salt$abcd",
	} {
		if h.Verify("anything", material) {
			t.Fatalf("expected %q to fail verification", material)
		}
		if _, _, err := parseMaterial(material); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for %q, got %v", material, err)
		}
	}
}
