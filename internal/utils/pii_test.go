package utils

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cipherOnce sync.Once
	cipherA    *PIICipher
	cipherB    *PIICipher
)

func testCiphers(t *testing.T) (*PIICipher, *PIICipher) {
	t.Helper()
	cipherOnce.Do(func() {
		var err error
		if cipherA, err = NewPIICipher("secret-a"); err != nil {
			panic(err)
		}
		if cipherB, err = NewPIICipher("secret-b"); err != nil {
			panic(err)
		}
	})
	return cipherA, cipherB
}

func TestPIICipher_RoundTrip(t *testing.T) {
	c, _ := testCiphers(t)

	for _, plain := range []string{"010-1234-5678", "", "0123456789abcdef", "서울 강서구"} {
		e1, err := c.Encrypt(plain)
		require.NoError(t, err)
		e2, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, e1, e2, "fresh IV per encryption")

		got, err := c.Decrypt(e1)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestPIICipher_Envelope(t *testing.T) {
	c, _ := testCiphers(t)
	enc, err := c.Encrypt("010-1234-5678")
	require.NoError(t, err)

	iv, data, ok := strings.Cut(enc, ":")
	require.True(t, ok)
	assert.Len(t, iv, 32)
	assert.Len(t, data, 32, "13 bytes pad to one block")
}

func TestPIICipher_WrongKey(t *testing.T) {
	a, b := testCiphers(t)
	enc, err := a.Encrypt("010-1234-5678")
	require.NoError(t, err)

	got, err := b.Decrypt(enc)
	if err == nil {
		// CBC has no authentication; a wrong key occasionally yields
		// valid-looking padding, but never the plaintext.
		assert.NotEqual(t, "010-1234-5678", got)
		return
	}
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestPIICipher_Malformed(t *testing.T) {
	c, _ := testCiphers(t)
	cases := map[string]string{
		"no separator":  "abcdef",
		"short iv":      "00:00112233445566778899aabbccddeeff",
		"bad hex":       "00112233445566778899aabbccddeeff:zz",
		"not aligned":   "00112233445566778899aabbccddeeff:0011",
		"empty payload": "00112233445566778899aabbccddeeff:",
	}
	for name, in := range cases {
		_, err := c.Decrypt(in)
		var derr *DecryptionError
		assert.ErrorAs(t, err, &derr, name)
		assert.ErrorIs(t, err, ErrDecryption, name)
	}
}

func TestIsDefaultSecret(t *testing.T) {
	assert.True(t, IsDefaultSecret(DefaultSecretKey))
	assert.False(t, IsDefaultSecret("something-else"))
}
