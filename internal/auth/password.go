package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashIterations = 10000
	hashKeyLength  = 32
)

// The salt is fixed so hashing stays deterministic: login compares the stored
// hex against a fresh hash of the entered password.
var hashSalt = []byte("lectorium.credentials.v1")

// HashPassword derives a 64-character hex digest of the password.
func HashPassword(password string) string {
	key := pbkdf2.Key([]byte(password), hashSalt, hashIterations, hashKeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword reports whether password hashes to storedHash.
func VerifyPassword(storedHash, password string) bool {
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashPassword(password))) == 1
}
