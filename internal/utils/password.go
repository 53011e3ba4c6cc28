package utils

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashing parameters.  The salt is stored hex-encoded and the
// hex text itself is fed to the KDF, which keeps hashes produced by the
// earlier Node deployment verifiable.
const (
	SaltLength       = 16
	PBKDF2Iterations = 10000
	PBKDF2KeyLength  = 64
)

// HashPassword returns "hex(salt):hex(key)" for plain using a fresh
// random salt, so two calls never return the same string.
func HashPassword(plain string) (string, error) {
	salt, err := randomHex(SaltLength)
	if err != nil {
		return "", err
	}
	key := derivePasswordKey(plain, salt)
	return salt + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether plain matches a value produced by
// HashPassword.  Malformed stored values never verify.
func VerifyPassword(stored, plain string) bool {
	salt, want, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || want == "" {
		return false
	}
	wantKey, err := hex.DecodeString(want)
	if err != nil || len(wantKey) != PBKDF2KeyLength {
		return false
	}
	got := derivePasswordKey(plain, salt)
	return subtle.ConstantTimeCompare(got, wantKey) == 1
}

func derivePasswordKey(plain, salt string) []byte {
	return pbkdf2.Key([]byte(plain), []byte(salt), PBKDF2Iterations, PBKDF2KeyLength, sha512.New)
}

// randomHex returns a hex string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
