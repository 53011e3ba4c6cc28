package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// DefaultSecretKey is the documented insecure fallback used when
// SECRET_KEY is not configured.  The service still works with it.
const DefaultSecretKey = "cocobebe-default-secret-key-change-in-production"

// scrypt parameters used to stretch the secret into an AES-256 key.
const (
	scryptSalt = "salt"
	scryptN    = 16384
	scryptR    = 8
	scryptP    = 1
	aesKeySize = 32
)

// ErrDecryption is the sentinel wrapped by every DecryptionError.
var ErrDecryption = errors.New("pii decryption failed")

// DecryptionError reports why a ciphertext could not be decrypted.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string { return ErrDecryption.Error() + ": " + e.Reason }

func (e *DecryptionError) Unwrap() error { return ErrDecryption }

// PIICipher encrypts personally identifiable fields (phone numbers)
// with AES-256-CBC.  Ciphertexts are "hex(iv):hex(ciphertext)".
type PIICipher struct {
	block cipher.Block
}

// NewPIICipher derives the AES key from secret.
func NewPIICipher(secret string) (*PIICipher, error) {
	key, err := scrypt.Key([]byte(secret), []byte(scryptSalt), scryptN, scryptR, scryptP, aesKeySize)
	if err != nil {
		return nil, fmt.Errorf("derive pii key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}
	return &PIICipher{block: block}, nil
}

// IsDefaultSecret reports whether secret is the insecure fallback.
func IsDefaultSecret(secret string) bool { return secret == DefaultSecretKey }

// Encrypt encrypts plain with a fresh random IV.
func (c *PIICipher) Encrypt(plain string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.  A malformed envelope, a bad IV or a
// ciphertext produced under a different secret yields a *DecryptionError.
func (c *PIICipher) Decrypt(encoded string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", &DecryptionError{Reason: "missing iv separator"}
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", &DecryptionError{Reason: "invalid iv"}
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid ciphertext encoding"}
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", &DecryptionError{Reason: "ciphertext is not block aligned"}
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", &DecryptionError{Reason: err.Error()}
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("bad padding")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
