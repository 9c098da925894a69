package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltBytes        = 32
	derivedKeyLength = 32
	hashSeparator    = "$"
)

// PasswordHasher derives and checks salted PBKDF2-HMAC-SHA256 credentials.
// Stored material has the form "<hex salt>$<hex digest>"; the salt text
// itself (not its decoded bytes) feeds the KDF.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher with the production iteration count.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{iterations: pbkdf2Iterations}
}

// Hash produces fresh material for password using a random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: read salt: %w", err)
	}
	salt := hex.EncodeToString(raw)
	return salt + hashSeparator + hex.EncodeToString(h.derive(password, salt)), nil
}

// Verify reports whether password matches material. Malformed material
// never matches.
func (h *PasswordHasher) Verify(password, material string) bool {
	salt, digest, err := parseMaterial(material)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(h.derive(password, salt), digest) == 1
}

func (h *PasswordHasher) derive(password, salt string) []byte {
	iter := h.iterations
	if iter <= 0 {
		iter = pbkdf2Iterations
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iter, derivedKeyLength, sha256.New)
}

func parseMaterial(material string) (salt string, digest []byte, err error) {
	parts := strings.Split(material, hashSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, ErrMalformedHash
	}
	digest, err = hex.DecodeString(parts[1])
	if err != nil || len(digest) != derivedKeyLength {
		return "", nil, ErrMalformedHash
	}
	return parts[0], digest, nil
}
