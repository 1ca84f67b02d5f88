package hashutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether the password matches the bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSecret creates a secure random url-safe secret with a type prefix.
// 32 bytes of randomness, so the encoded secret carries 256 bits of entropy.
func GenerateSecret(prefix string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// Prefix returns the first n characters of a secret for display purposes.
func Prefix(secret string, n int) string {
	if len(secret) < n {
		return secret
	}
	return secret[:n]
}

// KeyedHasher computes deterministic keyed hashes of secrets so they can be
// looked up by equality without storing plaintext. The pepper is server-held
// and distinct from per-user password salts.
type KeyedHasher struct {
	pepper []byte
}

// NewKeyedHasher creates a KeyedHasher with the given pepper.
func NewKeyedHasher(pepper string) *KeyedHasher {
	return &KeyedHasher{pepper: []byte(pepper)}
}

// Hash returns the hex HMAC-SHA256 digest of the secret.
func (h *KeyedHasher) Hash(secret string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether the secret hashes to digest, in constant time.
func (h *KeyedHasher) Matches(secret, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(secret)), []byte(digest)) == 1
}
